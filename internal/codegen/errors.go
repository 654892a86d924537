package codegen

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// Code classifies generation problems.
type Code string

const (
	// TypeResolutionError: a port or member type has no Go representation.
	TypeResolutionError Code = "TypeResolutionError"
	// CyclicValueError: a value could not be ordered before its consumer.
	CyclicValueError Code = "CyclicValueError"
	// UnsupportedConstructError: the node or flow shape cannot be lowered.
	UnsupportedConstructError Code = "UnsupportedConstructError"
	// NameCollisionError: two names mapped to the same identifier and one
	// was renamed. Reported as a warning.
	NameCollisionError Code = "NameCollisionError"
)

// ErrCanceled is returned when Options.Cancel or the context stops a run.
var ErrCanceled = errors.New("generation canceled")

// GenerationError is a problem found while generating a graph.
type GenerationError struct {
	Code     Code
	Severity diag.Severity
	GraphID  string
	NodeID   nodeid.ID
	Msg      string
}

func (e *GenerationError) Error() string {
	if e.NodeID.IsValid() {
		return fmt.Sprintf("%s: node %s: %s", e.Code, e.NodeID, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Location implements diag.Located.
func (e *GenerationError) Location() (string, nodeid.ID) { return e.GraphID, e.NodeID }

// DiagnosticCode implements diag.Coded.
func (e *GenerationError) DiagnosticCode() string { return string(e.Code) }

// Diagnostic converts the error for a diag.Sink.
func (e *GenerationError) Diagnostic() diag.Diagnostic {
	return diag.FromError("codegen", e.Severity, e)
}

func genError(code Code, id nodeid.ID, format string, args ...any) *GenerationError {
	return &GenerationError{Code: code, Severity: diag.Error, NodeID: id, Msg: fmt.Sprintf(format, args...)}
}

// asGenError turns an error returned by a kind's Emit into a
// GenerationError attributed to id, unless it already is one.
func asGenError(err error, id nodeid.ID) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	return genError(UnsupportedConstructError, id, "%v", err)
}
