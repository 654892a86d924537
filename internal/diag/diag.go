package diag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// Severity of a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Located is implemented by errors that originate from a graph element.
type Located interface {
	Location() (graphID string, id nodeid.ID)
}

// Coded is implemented by errors that belong to a named error class.
type Coded interface {
	DiagnosticCode() string
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity  `json:"severity" msgpack:"severity"`
	Source   string    `json:"source" msgpack:"source"`
	Code     string    `json:"code,omitempty" msgpack:"code,omitempty"`
	Message  string    `json:"message" msgpack:"message"`
	GraphID  string    `json:"graph_id,omitempty" msgpack:"graph_id,omitempty"`
	NodeID   nodeid.ID `json:"node_id,omitempty" msgpack:"node_id,omitempty"`
	File     string    `json:"file,omitempty" msgpack:"file,omitempty"`
	Line     int       `json:"line,omitempty" msgpack:"line,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	if d.Code != "" {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	if d.File != "" {
		fmt.Fprintf(&b, " %s:%d", d.File, d.Line)
	}
	if d.NodeID.IsValid() {
		fmt.Fprintf(&b, " node %s", d.NodeID)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// FromError builds a diagnostic from err, filling in the location and code
// when the error chain provides them.
func FromError(source string, sev Severity, err error) Diagnostic {
	d := Diagnostic{Severity: sev, Source: source, Message: err.Error()}
	var loc Located
	if errors.As(err, &loc) {
		d.GraphID, d.NodeID = loc.Location()
	}
	var coded Coded
	if errors.As(err, &coded) {
		d.Code = coded.DiagnosticCode()
	}
	return d
}

// Sink receives diagnostics.
type Sink interface {
	Publish(ctx context.Context, ds ...Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ds ...Diagnostic)

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, ds ...Diagnostic) { f(ctx, ds...) }

type multi []Sink

// Multi fans diagnostics out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Publish(ctx context.Context, ds ...Diagnostic) {
	for _, s := range m {
		s.Publish(ctx, ds...)
	}
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
