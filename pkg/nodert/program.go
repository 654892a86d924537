package nodert

import (
	"errors"
	"sort"
)

// BindFunc is the signature of the Bind<Name> function of generated code.
type BindFunc func(h Host) (*Program, error)

// Program is a graph bound to a host: its entry points per event and its
// readable properties.
type Program struct {
	GraphID    string
	entries    map[string][]func() error
	properties map[string]func() any
}

// NewProgram returns an empty program for the given graph.
func NewProgram(graphID string) *Program {
	return &Program{
		GraphID:    graphID,
		entries:    make(map[string][]func() error),
		properties: make(map[string]func() any),
	}
}

// On registers an entry point for event. Entries run in registration order.
func (p *Program) On(event string, fn func() error) {
	p.entries[event] = append(p.entries[event], fn)
}

// Property exposes a property getter to the host.
func (p *Program) Property(name string, get func() any) {
	p.properties[name] = get
}

// Trigger runs every entry point of event. A failing entry does not stop the
// others; all errors are joined.
func (p *Program) Trigger(event string) error {
	var errs []error
	for _, fn := range p.entries[event] {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get reads a property.
func (p *Program) Get(name string) (any, bool) {
	get, ok := p.properties[name]
	if !ok {
		return nil, false
	}
	return get(), true
}

// Events lists the events with at least one entry point.
func (p *Program) Events() []string {
	out := make([]string, 0, len(p.entries))
	for ev := range p.entries {
		out = append(out, ev)
	}
	sort.Strings(out)
	return out
}
