package codegen

import (
	"context"
	"fmt"
	"go/format"
	"strings"
	"time"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/hclgraph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// RuntimeImport is the import path of the package generated code calls.
const RuntimeImport = "github.com/specialistvlad/nodegraph/pkg/nodert"

// DefaultPackage is used when Options.Package is empty.
const DefaultPackage = "graphs"

// Options configures a Generator.
type Options struct {
	// Package is the package clause of generated files.
	Package string
	// Timestamp adds the generation time to the file header. It makes the
	// output differ between runs and is off by default.
	Timestamp bool
	// Cancel is polled between bodies; returning true stops generation
	// with ErrCanceled.
	Cancel func() bool
}

// GeneratedData is the result of generating one graph.
type GeneratedData struct {
	GraphID   string
	GraphName string
	Package   string
	// BindFunc is the name of the generated Bind function and IDConst the
	// constant holding the graph id.
	BindFunc string
	IDConst  string
	Source   []byte
	// Symbols maps "12.result" style port references and
	// "<member kind>.<name>" member keys to Go identifiers.
	Symbols     map[string]string
	Diagnostics []*GenerationError
	// LineMap maps 1-based lines of Source to the node they were generated
	// for.
	LineMap map[int]nodeid.ID
	// Hash is the content hash of the graph the source was generated from.
	Hash string
	// Generated is set only when Options.Timestamp is.
	Generated time.Time
}

// HasErrors reports whether generation produced error diagnostics. The
// source is still valid Go; the affected bodies fail when run.
func (d *GeneratedData) HasErrors() bool {
	for _, e := range d.Diagnostics {
		if e.Severity == diag.Error {
			return true
		}
	}
	return false
}

// Generator lowers graphs built from the kinds of one registry.
type Generator struct {
	reg  *registry.Registry
	opts Options
}

// New creates a generator.
func New(reg *registry.Registry, opts Options) *Generator {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	return &Generator{reg: reg, opts: opts}
}

// generation is the state of one Generate call.
type generation struct {
	reg     *registry.Registry
	g       *graph.Graph
	syms    *symbols
	idConst string

	volatile map[nodeid.ID]bool
	deps     map[nodeid.ID]map[nodeid.ID]bool
	diags    []*GenerationError
}

// Generate produces the Go source of g.
func (gen *Generator) Generate(ctx context.Context, g *graph.Graph) (*GeneratedData, error) {
	ctx, logger := ctxlog.WithGraph(ctx, g.ID, g.Name)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q is invalid: %w", g.Name, err)
	}
	hash, err := hclgraph.Hash(g)
	if err != nil {
		return nil, fmt.Errorf("hashing graph %q: %w", g.Name, err)
	}

	name := camel(g.Name)
	if name == "" {
		name = "Unnamed"
	}
	st := &generation{
		reg:      gen.reg,
		g:        g,
		syms:     newSymbols(g.ID),
		volatile: make(map[nodeid.ID]bool),
		deps:     make(map[nodeid.ID]map[nodeid.ID]bool),
	}
	st.idConst = st.syms.unique("graph" + name + "ID")
	bind := st.syms.unique("Bind" + name)
	st.register()

	data := &GeneratedData{
		GraphID:   g.ID,
		GraphName: g.Name,
		Package:   gen.opts.Package,
		BindFunc:  bind,
		IDConst:   st.idConst,
		Hash:      hash,
	}
	if gen.opts.Timestamp {
		data.Generated = time.Now().UTC()
	}
	logger.Debug("Generating graph source.", "package", data.Package, "hash", hash)

	var w writer
	w.line("// Code generated by nodegraph. DO NOT EDIT.")
	w.line("// Graph: %q", g.Name)
	w.line("// Content hash: %s", hash)
	if !data.Generated.IsZero() {
		w.line("// Generated at: %s", data.Generated.Format(time.RFC3339))
	}
	w.line("")
	w.line("package %s", data.Package)
	w.line("")
	w.line("import %q", RuntimeImport)
	w.line("")
	w.line("const %s = %q", st.idConst, g.ID)
	w.line("")
	w.line("// %s binds graph %q to a host.", bind, g.Name)
	w.line("func %s(h nodert.Host) (*nodert.Program, error) {", bind)
	w.line("p := nodert.NewProgram(%s)", st.idConst)
	if err := st.writeBind(ctx, gen, &w); err != nil {
		return nil, err
	}
	w.line("return p, nil")
	w.line("}")

	src, err := format.Source([]byte(w.String()))
	if err != nil {
		return nil, fmt.Errorf("formatting generated source for graph %q: %w", g.Name, err)
	}
	data.Source = src
	data.LineMap = make(map[int]nodeid.ID)
	for line, o := range origins(src) {
		data.LineMap[line] = o.NodeID
	}
	data.Symbols = st.syms.byKey
	data.Diagnostics = append(st.syms.diags, st.diags...)
	for _, d := range data.Diagnostics {
		d.GraphID = g.ID
		logger.Warn("Generation problem.", "code", d.Code, "nodeID", d.NodeID, "error", d.Msg)
	}
	logger.Debug("Graph source generated.", "bytes", len(src), "diagnostics", len(data.Diagnostics))
	return data, nil
}

func (gen *Generator) canceled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return gen.opts.Cancel != nil && gen.opts.Cancel()
}

// register is the registration pass: every member and every value output
// gets its identifier before any code is written.
func (st *generation) register() {
	g, s := st.g, st.syms
	for _, v := range g.Variables() {
		s.register(memberKey(graph.MemberVariable, v.Name), memberSymbol("v", v.Name), nodeid.None)
	}
	for _, p := range g.Properties() {
		s.register(memberKey(graph.MemberProperty, p.Name), memberSymbol("p", p.Name), nodeid.None)
	}
	for _, f := range g.Functions() {
		s.register(memberKey(graph.MemberFunction, f.Name), memberSymbol("fn", f.Name), nodeid.None)
	}
	for _, c := range g.Constructors() {
		s.register(memberKey(graph.MemberConstructor, c.Name), memberSymbol("ctor", c.Name), nodeid.None)
	}
	for _, id := range g.NodeIDs() {
		e, _ := g.Element(id)
		for _, p := range e.Node.PortsOf(graph.Output, graph.Value) {
			s.register(p.Ref().String(), portSymbol(e, p.Name), id)
		}
	}
	// Parameters are scoped to their function, so functions may reuse
	// each other's parameter names.
	params := map[string]bool{}
	for _, f := range g.Functions() {
		local := map[string]bool{}
		for _, p := range f.Params {
			want := memberSymbol("a", p.Name)
			name := want
			for i := 2; local[name] || (s.used[name] && !params[name]) || reserved[name]; i++ {
				name = fmt.Sprintf("%s%d", want, i)
			}
			local[name], params[name], s.used[name] = true, true, true
			s.byKey[paramKey(f.Name, p.Name)] = name
		}
	}
}

func paramKey(function, param string) string {
	return "param." + function + "." + param
}

func (st *generation) problem(e *GenerationError) {
	st.diags = append(st.diags, e)
}

// member returns the identifier of a variable or property.
func (st *generation) member(name string) (string, error) {
	kind := st.g.MemberKindOf(name)
	if kind != graph.MemberVariable && kind != graph.MemberProperty {
		return "", fmt.Errorf("no variable or property named %q", name)
	}
	sym, ok := st.syms.lookup(memberKey(kind, name))
	if !ok {
		return "", genError(TypeResolutionError, nodeid.None, "%s %q has no generated representation", kind, name)
	}
	return sym, nil
}

func (st *generation) function(name string) (string, error) {
	sym, ok := st.syms.lookup(memberKey(graph.MemberFunction, name))
	if !ok {
		return "", fmt.Errorf("no function named %q", name)
	}
	return sym, nil
}

// signature renders the Go function type of f.
func (st *generation) signature(f *graph.Function) (string, error) {
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		t, err := types.GoType(p.Type)
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		sym, _ := st.syms.lookup(paramKey(f.Name, p.Name))
		params = append(params, sym+" "+t)
	}
	result := "error"
	if f.Returns != cty.NilType {
		t, err := types.GoType(f.Returns)
		if err != nil {
			return "", fmt.Errorf("result: %w", err)
		}
		result = "(" + t + ", error)"
	}
	return "func(" + strings.Join(params, ", ") + ") " + result, nil
}

func (st *generation) writeBind(ctx context.Context, gen *Generator, w *writer) error {
	g := st.g

	for _, v := range g.Variables() {
		st.writeState(w, memberKey(graph.MemberVariable, v.Name), v.Type, v.Default)
	}
	for _, p := range g.Properties() {
		st.writeState(w, memberKey(graph.MemberProperty, p.Name), p.Type, p.Default)
	}

	sigs := map[string]string{}
	for _, f := range g.Functions() {
		key := memberKey(graph.MemberFunction, f.Name)
		sig, err := st.signature(f)
		if err != nil {
			st.problem(genError(TypeResolutionError, f.Body, "function %q: %v", f.Name, err))
			delete(st.syms.byKey, key)
			continue
		}
		sym, _ := st.syms.lookup(key)
		sigs[f.Name] = sig
		w.line("var %s %s", sym, sig)
		w.line("_ = %s", sym)
	}

	for _, f := range g.Functions() {
		sig, ok := sigs[f.Name]
		if !ok {
			continue
		}
		if gen.canceled(ctx) {
			return ErrCanceled
		}
		sym, _ := st.syms.lookup(memberKey(graph.MemberFunction, f.Name))
		w.line("%s = %s {", sym, sig)
		w.lines(st.bodyOf(functionBody, f))
		w.line("}")
	}

	for _, c := range g.Constructors() {
		if gen.canceled(ctx) {
			return ErrCanceled
		}
		sym, _ := st.syms.lookup(memberKey(graph.MemberConstructor, c.Name))
		w.line("%s := func() error {", sym)
		w.lines(st.bodyOf(constructorBody, &graph.Function{Name: c.Name, Returns: cty.NilType, Body: c.Body}))
		w.line("}")
		w.line("if err := %s(); err != nil {", sym)
		w.line("return nil, err")
		w.line("}")
	}

	for n := range g.TopLevelNodes() {
		k, ok := st.reg.Kind(n.Kind)
		if !ok || !k.Caps.Has(registry.EntryPoint) {
			continue
		}
		if gen.canceled(ctx) {
			return ErrCanceled
		}
		w.line("p.On(%q, func() error {", n.SettingString("event"))
		w.lines(st.entryBody(n.ID))
		w.line("})")
	}

	for _, p := range g.Properties() {
		sym, ok := st.syms.lookup(memberKey(graph.MemberProperty, p.Name))
		if !ok {
			continue
		}
		w.line("p.Property(%q, func() any {", p.Name)
		w.line("return %s", sym)
		w.line("})")
	}
	return nil
}

// writeState declares a variable or property initialized to its default.
func (st *generation) writeState(w *writer, key string, t cty.Type, def cty.Value) {
	sym, _ := st.syms.lookup(key)
	goType, err := types.GoType(t)
	if err == nil {
		if def == cty.NilVal {
			def = types.Zero(t)
		}
		var lit string
		if lit, err = types.Literal(def); err == nil {
			w.line("var %s %s = %s", sym, goType, lit)
			w.line("_ = %s", sym)
			return
		}
	}
	st.problem(genError(TypeResolutionError, nodeid.None, "%s: %v", key, err))
	delete(st.syms.byKey, key)
}

// bodyOf generates a function or constructor body.
func (st *generation) bodyOf(kind bodyKind, f *graph.Function) []string {
	b := newBody(st, kind, f)
	entry, err := st.g.FunctionEntry(f)
	if err != nil {
		ge := genError(UnsupportedConstructError, f.Body, "%v", err)
		st.problem(ge)
		return b.stub(ge)
	}
	return st.run(b, entry.ID)
}

func (st *generation) entryBody(id nodeid.ID) []string {
	return st.run(newBody(st, eventBody, nil), id)
}

func (st *generation) run(b *body, entry nodeid.ID) []string {
	if err := b.exec(entry); err != nil {
		ge := asGenError(err, entry)
		st.problem(ge)
		return newBody(st, b.kind, b.fn).stub(ge)
	}
	return b.finish()
}

// isVolatile mirrors the interpreter: a data node is volatile when it is
// impure or reads from a volatile data node.
func (st *generation) isVolatile(id nodeid.ID) bool {
	if v, ok := st.volatile[id]; ok {
		return v
	}
	st.volatile[id] = false
	n, _ := st.g.Node(id)
	result := false
	if k, ok := st.reg.Kind(n.Kind); ok && k.Caps.Has(registry.Impure) {
		result = true
	} else {
		for _, p := range n.PortsOf(graph.Input, graph.Value) {
			c, ok := st.g.Producer(p.Ref())
			if !ok {
				continue
			}
			pn, _ := st.g.Node(c.From.Node)
			if pk, ok := st.reg.Kind(pn.Kind); ok && !pk.IsFlow() && st.isVolatile(pn.ID) {
				result = true
				break
			}
		}
	}
	st.volatile[id] = result
	return result
}

// flowDeps returns the flow nodes whose outputs a data node reads,
// directly or through other data nodes.
func (st *generation) flowDeps(id nodeid.ID) map[nodeid.ID]bool {
	if d, ok := st.deps[id]; ok {
		return d
	}
	out := map[nodeid.ID]bool{}
	st.deps[id] = out
	n, _ := st.g.Node(id)
	for _, p := range n.PortsOf(graph.Input, graph.Value) {
		c, ok := st.g.Producer(p.Ref())
		if !ok {
			continue
		}
		pn, _ := st.g.Node(c.From.Node)
		if pk, ok := st.reg.Kind(pn.Kind); ok && pk.IsFlow() {
			out[pn.ID] = true
			continue
		}
		for dep := range st.flowDeps(pn.ID) {
			out[dep] = true
		}
	}
	return out
}

// writer accumulates unformatted source lines; go/format takes care of the
// indentation.
type writer struct {
	b strings.Builder
}

func (w *writer) line(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) lines(ls []string) {
	for _, l := range ls {
		w.b.WriteString(l)
		w.b.WriteByte('\n')
	}
}

func (w *writer) String() string { return w.b.String() }
