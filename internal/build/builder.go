package build

import (
	"context"
	"errors"
	"fmt"
	"go/scanner"
	"reflect"
	"regexp"
	"sort"
	"strconv"

	"github.com/specialistvlad/nodegraph/internal/codegen"
	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/traefik/yaegi/interp"
)

// DefaultFile names the merged unit in diagnostics that cannot be traced
// back to a graph.
const DefaultFile = "graphs.go"

// Unit is one generated file handed to a builder.
type Unit struct {
	// File names the unit in diagnostics, e.g. "hello.go".
	File string
	Data *codegen.GeneratedData
}

// Result is the outcome of a build.
type Result struct {
	// Passed is false when any error diagnostic was reported.
	Passed bool
	// Diagnostics holds generation problems carried by the units followed
	// by the problems found while building.
	Diagnostics []diag.Diagnostic
	// Binds maps graph ids to their bind functions. Set whenever the merged
	// unit compiles, even when a unit carried error diagnostics.
	Binds map[string]nodert.BindFunc
	// Merged is the compilation unit that was evaluated.
	Merged *codegen.Merged
}

// Builder turns generated units into bind functions.
type Builder interface {
	Build(ctx context.Context, units []Unit) (*Result, error)
}

// Interpreted builds units by evaluating them with yaegi.
type Interpreted struct {
	// Package is the package name of the merged unit.
	Package string
}

var _ Builder = (*Interpreted)(nil)

// NewInterpreted returns a builder that merges units into package pkg.
func NewInterpreted(pkg string) *Interpreted {
	if pkg == "" {
		pkg = codegen.DefaultPackage
	}
	return &Interpreted{Package: pkg}
}

// Build merges and evaluates units. A build that fails to compile returns
// the populated Result together with a *BuildError.
func (b *Interpreted) Build(ctx context.Context, units []Unit) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if len(units) == 0 {
		return nil, fmt.Errorf("nothing to build")
	}

	res := &Result{Binds: make(map[string]nodert.BindFunc)}
	parts := make([]*codegen.GeneratedData, 0, len(units))
	for _, u := range units {
		if u.Data == nil {
			return nil, fmt.Errorf("unit %q has no generated data", u.File)
		}
		for _, ge := range u.Data.Diagnostics {
			d := ge.Diagnostic()
			d.File = u.File
			res.Diagnostics = append(res.Diagnostics, d)
		}
		parts = append(parts, u.Data)
	}

	merged, err := codegen.Merge(b.Package, parts...)
	if err != nil {
		return nil, fmt.Errorf("merging units: %w", err)
	}
	res.Merged = merged
	for _, ge := range merged.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, ge.Diagnostic())
	}

	logger.Debug("Evaluating merged unit.", "graphs", len(units), "bytes", len(merged.Source))
	i, err := b.eval(ctx, merged.Source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		berr := &BuildError{Diagnostics: locate(err, merged, units)}
		res.Diagnostics = append(res.Diagnostics, berr.Diagnostics...)
		logger.Warn("Build failed.", "error", berr)
		return res, berr
	}

	ids := make([]string, 0, len(merged.Binds))
	for id := range merged.Binds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		bind, err := lookupBind(i, merged.Package, merged.Binds[id])
		if err != nil {
			berr := &BuildError{Diagnostics: []diag.Diagnostic{{
				Severity: diag.Error,
				Source:   "build",
				Message:  err.Error(),
				GraphID:  id,
				File:     DefaultFile,
			}}}
			res.Diagnostics = append(res.Diagnostics, berr.Diagnostics...)
			return res, berr
		}
		res.Binds[id] = bind
	}
	res.Passed = !diag.HasErrors(res.Diagnostics)
	logger.Info("Build finished.", "graphs", len(res.Binds), "passed", res.Passed, "diagnostics", len(res.Diagnostics))
	return res, nil
}

func (b *Interpreted) eval(ctx context.Context, src []byte) (i *interp.Interpreter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluating generated source panicked: %v", r)
		}
	}()
	i = interp.New(interp.Options{})
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("loading runtime symbols: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return nil, err
	}
	return i, nil
}

func lookupBind(i *interp.Interpreter, pkg, name string) (nodert.BindFunc, error) {
	v, err := i.Eval(pkg + "." + name)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", name, err)
	}
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is a %s, not a function", name, v.Kind())
	}
	fn, ok := v.Interface().(func(nodert.Host) (*nodert.Program, error))
	if !ok {
		return nil, fmt.Errorf("%s has type %s", name, v.Type())
	}
	return fn, nil
}

// positionRe matches "file.go:12:5: message" and "12:5: message" lines of
// interpreter errors.
var positionRe = regexp.MustCompile(`(?m)^(?:\S*\.go:)?(\d+):(\d+): (.+)$`)

// locate turns an evaluation error into diagnostics, mapping merged lines
// back to the unit and node that generated them.
func locate(err error, merged *codegen.Merged, units []Unit) []diag.Diagnostic {
	type pos struct {
		line int
		msg  string
	}
	var found []pos
	var list scanner.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			found = append(found, pos{line: e.Pos.Line, msg: e.Msg})
		}
	} else {
		for _, m := range positionRe.FindAllStringSubmatch(err.Error(), -1) {
			line, _ := strconv.Atoi(m[1])
			found = append(found, pos{line: line, msg: m[3]})
		}
	}
	if len(found) == 0 {
		return []diag.Diagnostic{{Severity: diag.Error, Source: "build", Message: err.Error(), File: DefaultFile}}
	}

	out := make([]diag.Diagnostic, 0, len(found))
	for _, p := range found {
		d := diag.Diagnostic{
			Severity: diag.Error,
			Source:   "build",
			Code:     "BuildError",
			Message:  p.msg,
			File:     DefaultFile,
			Line:     p.line,
		}
		if o, ok := merged.Origins[p.line]; ok {
			d.GraphID, d.NodeID = o.GraphID, o.NodeID
			for _, u := range units {
				if u.Data.GraphID != o.GraphID {
					continue
				}
				d.File = u.File
				if l := firstLine(u.Data.LineMap, o.NodeID); l > 0 {
					d.Line = l
				}
			}
		}
		out = append(out, d)
	}
	return out
}

// firstLine is the first line of a unit generated for id.
func firstLine(lines map[int]nodeid.ID, id nodeid.ID) int {
	best := 0
	for l, n := range lines {
		if n == id && (best == 0 || l < best) {
			best = l
		}
	}
	return best
}
