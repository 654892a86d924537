package codegen

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

type bodyKind int

const (
	eventBody bodyKind = iota
	functionBody
	constructorBody
)

type localVar struct {
	name   string
	goType string
}

// hoisted is a data value assigned to a local before its first consumer.
type hoisted struct {
	name string
	// path is the block stack at the assignment.
	path []int
	// deps are the flow nodes whose outputs the value reads.
	deps map[nodeid.ID]bool
}

// body generates the statements of one function literal: an event entry
// point, a graph function or a constructor.
type body struct {
	gen  *generation
	kind bodyKind
	fn   *graph.Function
	// zero is the zero literal of the function result, empty without one.
	zero string

	lines    []string
	depth    int
	locals   []localVar
	declared map[string]bool
	outputs  map[nodeid.PortRef]string
	cache    map[nodeid.PortRef]hoisted

	blocks    []int
	nextBlock int

	active    map[nodeid.ID]bool
	producing map[nodeid.ID]bool
	// stop is the join node of the branch arm being generated.
	stop   nodeid.ID
	nodes  []*graph.Node
	marked nodeid.ID
}

func newBody(gen *generation, kind bodyKind, fn *graph.Function) *body {
	b := &body{
		gen:       gen,
		kind:      kind,
		fn:        fn,
		declared:  make(map[string]bool),
		outputs:   make(map[nodeid.PortRef]string),
		cache:     make(map[nodeid.PortRef]hoisted),
		active:    make(map[nodeid.ID]bool),
		producing: make(map[nodeid.ID]bool),
	}
	if kind == functionBody && fn.Returns != cty.NilType {
		b.zero, _ = types.Literal(types.Zero(fn.Returns))
	}
	return b
}

func (b *body) write(s string) {
	for _, l := range strings.Split(s, "\n") {
		b.lines = append(b.lines, strings.Repeat("\t", b.depth)+l)
	}
}

// stmt writes a statement of the node being generated, preceded by its
// provenance marker when the previous statement came from another node.
func (b *body) stmt(s string) {
	if n := b.current(); n != nil && n.ID != b.marked {
		b.write(fmt.Sprintf("// node %s (%s)", n.ID, n.Kind))
		b.marked = n.ID
	}
	b.write(s)
}

func (b *body) current() *graph.Node {
	if len(b.nodes) == 0 {
		return nil
	}
	return b.nodes[len(b.nodes)-1]
}

func (b *body) push(n *graph.Node) { b.nodes = append(b.nodes, n) }
func (b *body) pop() { b.nodes = b.nodes[:len(b.nodes)-1] }

func (b *body) enter() {
	b.depth++
	b.nextBlock++
	b.blocks = append(b.blocks, b.nextBlock)
}

func (b *body) leave() {
	b.blocks = b.blocks[:len(b.blocks)-1]
	b.depth--
}

// closeBlock writes a closing line. The next statement is marked again
// even if it comes from the same node.
func (b *body) closeBlock(s string) {
	b.write(s)
	b.marked = nodeid.None
}

func (b *body) block(open string, fn func() error, close string) error {
	b.stmt(open)
	b.enter()
	err := fn()
	if err == nil && strings.Contains(close, "\n") {
		// Statements before the closing brace stay inside the block.
		i := strings.LastIndexByte(close, '\n')
		b.write(close[:i])
		close = close[i+1:]
	}
	b.leave()
	b.closeBlock(close)
	return err
}

func (b *body) failReturn(errExpr string) string {
	if b.zero != "" {
		return "return " + b.zero + ", " + errExpr
	}
	return "return " + errExpr
}

func (b *body) failOn(id nodeid.ID) string {
	return b.failReturn(fmt.Sprintf("nodert.Fail(%s, %d, err)", b.gen.idConst, id))
}

func (b *body) check(call string, id nodeid.ID) {
	b.stmt(fmt.Sprintf("if err = %s; err != nil {", call))
	b.write("\t" + b.failOn(id))
	b.write("}")
}

func (b *body) assign(target, call string, id nodeid.ID) {
	b.stmt(fmt.Sprintf("%s, err = %s", target, call))
	b.write("if err != nil {")
	b.write("\t" + b.failOn(id))
	b.write("}")
}

// declare adds a body-level variable. want is used as is unless the body
// already declares it.
func (b *body) declare(want, goType string) string {
	name := want
	if b.declared[name] {
		name = b.gen.syms.unique(want)
	}
	b.declared[name] = true
	b.locals = append(b.locals, localVar{name: name, goType: goType})
	return name
}

// exec generates a flow node and the chains behind it.
func (b *body) exec(id nodeid.ID) error {
	if id == b.stop {
		return nil
	}
	g := b.gen.g
	n, ok := g.Node(id)
	if !ok {
		return genError(UnsupportedConstructError, id, "node not found")
	}
	k, err := b.gen.reg.KindOf(n)
	if err != nil {
		return genError(UnsupportedConstructError, id, "%v", err)
	}
	if !k.IsFlow() || k.Emit == nil {
		return genError(UnsupportedConstructError, id, "kind %s cannot be generated as a statement", n.Kind)
	}
	if b.active[id] {
		return genError(UnsupportedConstructError, id, "flow cycle through node %s cannot be generated", id)
	}
	b.active[id] = true
	defer delete(b.active, id)
	b.push(n)
	defer b.pop()

	ec := &emitContext{b: b, node: n}
	if err := k.Emit(ec); err != nil {
		return asGenError(err, id)
	}
	if ec.err != nil {
		return asGenError(ec.err, id)
	}
	return nil
}

// follow generates the chains connected to a flow output in registration
// order.
func (b *body) follow(ref nodeid.PortRef) error {
	for _, c := range b.gen.g.Outgoing(ref) {
		if err := b.exec(c.To.Node); err != nil {
			return err
		}
	}
	return nil
}

// input returns an expression for a value input of n.
func (b *body) input(n *graph.Node, port string) (string, error) {
	p := n.Port(port)
	if p == nil || p.Direction != graph.Input || p.Channel != graph.Value {
		return "", genError(UnsupportedConstructError, n.ID, "node has no value input %q", port)
	}
	in := b.gen.g.Incoming(p.Ref())
	switch len(in) {
	case 0:
		return literal(n, p)
	case 1:
		return b.produce(in[0].From)
	default:
		return "", genError(CyclicValueError, n.ID, "input %q has %d producers", port, len(in))
	}
}

func literal(n *graph.Node, p *graph.Port) (string, error) {
	v, ok := n.Inputs[p.Name]
	if !ok {
		v = p.Default
	}
	if v == cty.NilVal {
		v = types.Zero(p.Type)
	}
	lit, err := types.Literal(v)
	if err != nil {
		return "", genError(TypeResolutionError, n.ID, "input %q: %v", p.Name, err)
	}
	return lit, nil
}

// produce returns an expression for the value of an output port. Flow
// outputs are read from their local. Data values are inlined when they have
// a single consumer and cannot fail; otherwise they are assigned to a local
// first, which later consumers reuse while it is still valid.
func (b *body) produce(ref nodeid.PortRef) (string, error) {
	g := b.gen.g
	n, ok := g.Node(ref.Node)
	if !ok {
		return "", genError(UnsupportedConstructError, ref.Node, "producer not found")
	}
	p := n.Port(ref.Port)
	if p == nil {
		return "", genError(UnsupportedConstructError, ref.Node, "producer port %q not found", ref.Port)
	}
	k, err := b.gen.reg.KindOf(n)
	if err != nil {
		return "", genError(UnsupportedConstructError, n.ID, "%v", err)
	}
	if k.IsFlow() {
		return b.outputVar(ref, p.Type)
	}
	if h, ok := b.cache[ref]; ok && b.valid(h) {
		return h.name, nil
	}
	if k.Emit == nil {
		return "", genError(UnsupportedConstructError, n.ID, "kind %s cannot be generated", n.Kind)
	}
	if b.producing[n.ID] {
		return "", genError(CyclicValueError, n.ID, "value of node %s depends on itself", n.ID)
	}

	b.producing[n.ID] = true
	b.push(n)
	ec := &emitContext{b: b, node: n, data: true, exprs: make(map[string]expr)}
	err = k.Emit(ec)
	b.pop()
	delete(b.producing, n.ID)
	if err == nil {
		err = ec.err
	}
	if err != nil {
		return "", asGenError(err, n.ID)
	}
	e, ok := ec.exprs[ref.Port]
	if !ok {
		return "", genError(UnsupportedConstructError, n.ID, "output %q was not produced", ref.Port)
	}

	volatile := b.gen.isVolatile(n.ID)
	shared := len(g.Outgoing(ref)) > 1
	if !e.fallible && (volatile || !shared) {
		return e.src, nil
	}

	goType, err := types.GoType(p.Type)
	if err != nil {
		return "", genError(TypeResolutionError, n.ID, "output %q: %v", ref.Port, err)
	}
	sym, _ := b.gen.syms.lookup(ref.String())
	name := b.declare(sym, goType)
	b.push(n)
	if e.fallible {
		b.assign(name, e.src, n.ID)
	} else {
		b.stmt(fmt.Sprintf("%s = %s", name, e.src))
	}
	b.pop()
	if shared && !volatile {
		b.cache[ref] = hoisted{
			name: name,
			path: append([]int(nil), b.blocks...),
			deps: b.gen.flowDeps(n.ID),
		}
	}
	return name, nil
}

// valid reports whether a hoisted value may be used at the current point.
// Values that read flow outputs are only reused within the block that
// assigned them, so loops recompute them on every iteration.
func (b *body) valid(h hoisted) bool {
	if len(h.path) > len(b.blocks) {
		return false
	}
	for i := range h.path {
		if h.path[i] != b.blocks[i] {
			return false
		}
	}
	return len(h.deps) == 0 || len(h.path) == len(b.blocks)
}

// invalidate drops hoisted values that read outputs of id. It is called
// whenever id writes one of its outputs.
func (b *body) invalidate(id nodeid.ID) {
	for ref, h := range b.cache {
		if h.deps[id] {
			delete(b.cache, ref)
		}
	}
}

func (b *body) outputVar(ref nodeid.PortRef, t cty.Type) (string, error) {
	if name, ok := b.outputs[ref]; ok {
		return name, nil
	}
	goType, err := types.GoType(t)
	if err != nil {
		return "", genError(TypeResolutionError, ref.Node, "output %q: %v", ref.Port, err)
	}
	sym, _ := b.gen.syms.lookup(ref.String())
	name := b.declare(sym, goType)
	b.outputs[ref] = name
	return name, nil
}

// linearWalk follows a flow output through nodes that pass control to
// exactly one successor and returns the nodes reached, the last of which
// may be non-linear.
func (b *body) linearWalk(ref nodeid.PortRef) []nodeid.ID {
	g := b.gen.g
	var out []nodeid.ID
	seen := map[nodeid.ID]bool{}
	for {
		conns := g.Outgoing(ref)
		if len(conns) != 1 {
			return out
		}
		id := conns[0].To.Node
		if seen[id] {
			return out
		}
		seen[id] = true
		out = append(out, id)

		n, _ := g.Node(id)
		k, err := b.gen.reg.KindOf(n)
		if err != nil || !k.Caps.Has(registry.HasFlowInput) || k.Caps&(registry.Loop|registry.CoroutineCapable) != 0 {
			return out
		}
		outs := n.PortsOf(graph.Output, graph.Flow)
		if len(outs) != 1 {
			return out
		}
		ref = outs[0].Ref()
	}
}

// joinOf returns the first node both arms of a branch reach through linear
// chains, or nodeid.None.
func (b *body) joinOf(n *graph.Node, thenPort, elsePort string) nodeid.ID {
	other := map[nodeid.ID]bool{}
	for _, id := range b.linearWalk(nodeid.Ref(n.ID, elsePort)) {
		other[id] = true
	}
	for _, id := range b.linearWalk(nodeid.Ref(n.ID, thenPort)) {
		if other[id] && id != n.ID && !b.active[id] {
			return id
		}
	}
	return nodeid.None
}

func (b *body) branch(n *graph.Node, cond, thenPort, elsePort string) error {
	join := b.joinOf(n, thenPort, elsePort)
	saved := b.stop
	if join.IsValid() {
		b.stop = join
	}
	arm := func(port string) error {
		b.enter()
		defer b.leave()
		return b.follow(nodeid.Ref(n.ID, port))
	}

	b.stmt(fmt.Sprintf("if %s {", cond))
	err := arm(thenPort)
	if err == nil && len(b.gen.g.Outgoing(nodeid.Ref(n.ID, elsePort))) > 0 {
		b.closeBlock("} else {")
		err = arm(elsePort)
	}
	b.closeBlock("}")
	b.stop = saved
	if err != nil || !join.IsValid() {
		return err
	}
	return b.exec(join)
}

func (b *body) deferFlow(n *graph.Node, ticks int, port string) error {
	if b.kind != eventBody {
		return genError(UnsupportedConstructError, n.ID, "delay inside function or constructor %q cannot be generated", b.fnName())
	}
	open := fmt.Sprintf("nodert.After(h, %d, func() error {", ticks)
	return b.block(open, func() error {
		return b.follow(nodeid.Ref(n.ID, port))
	}, "return nil\n})")
}

func (b *body) ret(n *graph.Node, value string) error {
	switch b.kind {
	case constructorBody:
		b.stmt("return nil")
	case functionBody:
		if fn := n.SettingString("function"); fn != b.fn.Name {
			return genError(UnsupportedConstructError, n.ID, "return node of %q inside function %q", fn, b.fn.Name)
		}
		switch {
		case b.zero == "":
			b.stmt("return nil")
		case value == "":
			b.stmt("return " + b.zero + ", nil")
		default:
			b.stmt("return " + value + ", nil")
		}
	default:
		b.stmt(fmt.Sprintf("return nodert.Failf(%s, %d, %q)", b.gen.idConst, n.ID, "return outside of a function body"))
	}
	return nil
}

func (b *body) fnName() string {
	if b.fn == nil {
		return ""
	}
	return b.fn.Name
}

func (b *body) param(name string) (string, error) {
	if b.kind != functionBody {
		return "", fmt.Errorf("no parameter named %q", name)
	}
	sym, ok := b.gen.syms.lookup(paramKey(b.fn.Name, name))
	if !ok {
		return "", fmt.Errorf("no parameter named %q", name)
	}
	return sym, nil
}

// finish returns the complete statement list of the body.
func (b *body) finish() []string {
	out := []string{"var err error", "_ = err"}
	for _, l := range b.locals {
		out = append(out, "var "+l.name+" "+l.goType, "_ = "+l.name)
	}
	out = append(out, b.lines...)
	switch {
	case b.kind != functionBody:
		out = append(out, "return nil")
	case b.zero == "":
		out = append(out, "return nil")
	default:
		out = append(out, "return "+b.zero+", nil")
	}
	return out
}

// stub returns a body that fails with the generation error.
func (b *body) stub(ge *GenerationError) []string {
	var out []string
	if n, ok := b.gen.g.Node(ge.NodeID); ok {
		out = append(out, fmt.Sprintf("// node %s (%s)", n.ID, n.Kind))
	}
	fail := fmt.Sprintf("nodert.Failf(%s, %d, %q)", b.gen.idConst, ge.NodeID, ge.Error())
	return append(out, b.failReturn(fail))
}
