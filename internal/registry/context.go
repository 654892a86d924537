package registry

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// ExecContext is what the interpreter hands to Kind.Eval and Kind.Exec.
type ExecContext interface {
	Context() context.Context
	Logger() *slog.Logger
	Graph() *graph.Graph
	Node() *graph.Node
	Host() nodert.Host

	// Input resolves a value input: the connected producer, the inline
	// literal, the port default or the zero value, in that order.
	Input(port string) (cty.Value, error)
	// SetOutput writes a value output of the running node.
	SetOutput(port string, v cty.Value) error
	// Fire runs the chain behind a flow output to completion before
	// returning. Loop kinds use it for their body.
	Fire(port string) error
	// Done reports whether the running body has returned. Loops stop
	// firing once it is set.
	Done() bool

	// State reads a variable or property of the instance.
	State(name string) (cty.Value, error)
	// SetState writes a variable or property of the instance.
	SetState(name string, v cty.Value) error
	// Call runs a graph function in a new frame.
	Call(function string, args []cty.Value) (cty.Value, error)
	// Param reads an argument of the function whose body is running.
	Param(name string) (cty.Value, error)
	// Return ends the running function body with a result.
	Return(v cty.Value) error
	// Suspend registers a continuation that resumes the traversal at port
	// after ticks host ticks.
	Suspend(ticks int, port string) error
}

// EmitContext is what the code generator hands to Kind.Emit. Expressions
// and statements are Go source fragments.
type EmitContext interface {
	Graph() *graph.Graph
	Node() *graph.Node
	// Host is the identifier of the nodert.Host in scope.
	Host() string

	// Input returns an expression for a value input. Producers that cannot
	// be inlined are assigned to a variable first.
	Input(port string) (string, error)
	// Output returns the variable a flow node stores a value output in.
	Output(port string) string
	// SetExpr defines a data node's output. Fallible expressions return
	// (value, error).
	SetExpr(port, expr string, fallible bool)

	// Line writes one statement.
	Line(format string, args ...any)
	// Check writes a call returning only an error, failing the body on error.
	Check(call string)
	// Assign writes `target, err = call`, failing the body on error.
	Assign(target, call string)
	// Block writes open, the statements produced by fn one level deeper,
	// then close.
	Block(open string, fn func() error, close string) error

	// Flow writes the chains connected to a flow output.
	Flow(port string) error
	// Branch writes an if/else over two flow outputs, emitting a shared
	// continuation once after the statement when both arms reach it.
	Branch(cond, thenPort, elsePort string) error
	// Defer writes a continuation that runs the chain behind port after
	// ticks host ticks.
	Defer(ticks int, port string) error
	// Return ends the enclosing function body.
	Return(expr string) error

	// Member returns the variable holding a variable or property.
	Member(name string) (string, error)
	// Param returns the variable holding an argument of the function being
	// generated.
	Param(name string) (string, error)
	// Function returns the variable holding a graph function.
	Function(name string) (string, error)
	// Temp declares a fresh body-level variable of a Go type.
	Temp(goType string) string
	// Unsupported reports a construct the generator cannot lower.
	Unsupported(format string, args ...any) error
}
