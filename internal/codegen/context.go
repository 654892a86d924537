package codegen

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/registry"
)

type expr struct {
	src      string
	fallible bool
}

// emitContext implements registry.EmitContext for one node. Data nodes
// define expressions through SetExpr; flow nodes write statements.
type emitContext struct {
	b     *body
	node  *graph.Node
	data  bool
	exprs map[string]expr
	// err records misuse reported by methods that cannot return one.
	err error
}

var _ registry.EmitContext = (*emitContext)(nil)

func (ec *emitContext) fail(format string, args ...any) {
	if ec.err == nil {
		ec.err = genError(UnsupportedConstructError, ec.node.ID, format, args...)
	}
}

func (ec *emitContext) statements() bool {
	if ec.data {
		ec.fail("data node %s cannot write statements", ec.node.Kind)
		return false
	}
	return true
}

func (ec *emitContext) Graph() *graph.Graph { return ec.b.gen.g }
func (ec *emitContext) Node() *graph.Node   { return ec.node }
func (ec *emitContext) Host() string        { return "h" }

func (ec *emitContext) Input(port string) (string, error) {
	return ec.b.input(ec.node, port)
}

func (ec *emitContext) Output(port string) string {
	if !ec.statements() {
		return "_"
	}
	p := ec.node.Port(port)
	if p == nil || p.Direction != graph.Output || p.Channel != graph.Value {
		ec.fail("node has no value output %q", port)
		return "_"
	}
	name, err := ec.b.outputVar(p.Ref(), p.Type)
	if err != nil {
		if ec.err == nil {
			ec.err = err
		}
		return "_"
	}
	ec.b.invalidate(ec.node.ID)
	return name
}

func (ec *emitContext) SetExpr(port, src string, fallible bool) {
	if !ec.data {
		ec.fail("flow node %s cannot define expressions", ec.node.Kind)
		return
	}
	ec.exprs[port] = expr{src: src, fallible: fallible}
}

func (ec *emitContext) Line(format string, args ...any) {
	if ec.statements() {
		ec.b.stmt(fmt.Sprintf(format, args...))
	}
}

func (ec *emitContext) Check(call string) {
	if ec.statements() {
		ec.b.check(call, ec.node.ID)
	}
}

func (ec *emitContext) Assign(target, call string) {
	if ec.statements() {
		ec.b.assign(target, call, ec.node.ID)
	}
}

func (ec *emitContext) Block(open string, fn func() error, close string) error {
	if !ec.statements() {
		return ec.err
	}
	return ec.b.block(open, fn, close)
}

func (ec *emitContext) flowOut(port string) bool {
	if !ec.statements() {
		return false
	}
	p := ec.node.Port(port)
	if p == nil || p.Direction != graph.Output || p.Channel != graph.Flow {
		ec.fail("node has no flow output %q", port)
		return false
	}
	return true
}

func (ec *emitContext) Flow(port string) error {
	if !ec.flowOut(port) {
		return ec.err
	}
	return ec.b.follow(nodeid.Ref(ec.node.ID, port))
}

func (ec *emitContext) Branch(cond, thenPort, elsePort string) error {
	if !ec.flowOut(thenPort) || !ec.flowOut(elsePort) {
		return ec.err
	}
	return ec.b.branch(ec.node, cond, thenPort, elsePort)
}

func (ec *emitContext) Defer(ticks int, port string) error {
	if !ec.flowOut(port) {
		return ec.err
	}
	return ec.b.deferFlow(ec.node, ticks, port)
}

func (ec *emitContext) Return(value string) error {
	if !ec.statements() {
		return ec.err
	}
	return ec.b.ret(ec.node, value)
}

func (ec *emitContext) Member(name string) (string, error) {
	return ec.b.gen.member(name)
}

func (ec *emitContext) Param(name string) (string, error) {
	return ec.b.param(name)
}

func (ec *emitContext) Function(name string) (string, error) {
	return ec.b.gen.function(name)
}

func (ec *emitContext) Temp(goType string) string {
	return ec.b.declare(ec.b.gen.syms.unique("tmp"), goType)
}

func (ec *emitContext) Unsupported(format string, args ...any) error {
	return genError(UnsupportedConstructError, ec.node.ID, format, args...)
}
