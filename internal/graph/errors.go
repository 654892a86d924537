package graph

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

var (
	// ErrIncompatibleType is wrapped by TypeError when no converter can
	// bridge two value ports.
	ErrIncompatibleType = errors.New("incompatible value types")
	// ErrStructural is wrapped by every StructuralError.
	ErrStructural = errors.New("structural error")
	// ErrNotFound is returned when an element, port or connection is missing.
	ErrNotFound = errors.New("not found")
)

// StructuralError reports an edit that would break the shape of the graph:
// a missing port, a wrong direction, a cycle, and so on.
type StructuralError struct {
	GraphID string
	Element nodeid.ID
	Message string
}

func (e *StructuralError) Error() string {
	if e.Element.IsValid() {
		return fmt.Sprintf("element %s: %s", e.Element, e.Message)
	}
	return e.Message
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// Location implements diag.Located.
func (e *StructuralError) Location() (string, nodeid.ID) { return e.GraphID, e.Element }

// DiagnosticCode implements diag.Coded.
func (e *StructuralError) DiagnosticCode() string { return "StructuralError" }

// TypeError reports a value connection whose types cannot be reconciled.
type TypeError struct {
	GraphID string
	From    nodeid.PortRef
	To      nodeid.PortRef
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot connect %s to %s: %s", e.From, e.To, e.Message)
}

func (e *TypeError) Unwrap() error { return ErrIncompatibleType }

// Location implements diag.Located.
func (e *TypeError) Location() (string, nodeid.ID) { return e.GraphID, e.To.Node }

// DiagnosticCode implements diag.Coded.
func (e *TypeError) DiagnosticCode() string { return "TypeError" }

func (g *Graph) structural(id nodeid.ID, format string, args ...any) error {
	return &StructuralError{GraphID: g.ID, Element: id, Message: fmt.Sprintf(format, args...)}
}
