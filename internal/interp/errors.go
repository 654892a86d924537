package interp

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

var (
	// ErrMaxSteps is returned when a traversal runs more flow nodes than
	// the configured limit.
	ErrMaxSteps = errors.New("traversal step limit exceeded")
	// ErrMaxCallDepth is returned when function calls nest too deeply.
	ErrMaxCallDepth = errors.New("function call depth limit exceeded")
	// ErrDestroyed is returned when an instance is used after Deactivate.
	ErrDestroyed = errors.New("instance has been destroyed")
)

// RuntimeError is a failure raised by a node during a traversal.
type RuntimeError struct {
	GraphID string
	NodeID  nodeid.ID
	Kind    string
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.Kind, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Location implements diag.Located.
func (e *RuntimeError) Location() (string, nodeid.ID) { return e.GraphID, e.NodeID }

// DiagnosticCode implements diag.Coded.
func (e *RuntimeError) DiagnosticCode() string { return "RuntimeError" }

// ErrorPolicy decides what happens to a failed traversal's error.
type ErrorPolicy int

const (
	// PolicyReturn hands errors back to the caller.
	PolicyReturn ErrorPolicy = iota
	// PolicyLog logs errors and reports success to the caller.
	PolicyLog
)

func (p ErrorPolicy) String() string {
	if p == PolicyLog {
		return "log"
	}
	return "return"
}

// ParseErrorPolicy is the inverse of ErrorPolicy.String.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "return", "":
		return PolicyReturn, nil
	case "log":
		return PolicyLog, nil
	default:
		return PolicyReturn, fmt.Errorf("unknown error policy %q", s)
	}
}

func wrap(graphID string, id nodeid.ID, kind string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{GraphID: graphID, NodeID: id, Kind: kind, Err: err}
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
