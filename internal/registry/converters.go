package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// Converter is an auto-conversion rule: a value of type From reaching a port
// of type To is routed through a helper node of Kind.
type Converter struct {
	Name     string
	Priority int
	// From is the source type. cty.DynamicPseudoType matches only sources
	// of type any.
	From     cty.Type
	To       cty.Type
	Kind     string
	Settings map[string]cty.Value
}

// Matches reports whether the rule bridges from to to.
func (c Converter) Matches(from, to cty.Type) bool {
	if c.From.Equals(cty.DynamicPseudoType) {
		return from.Equals(cty.DynamicPseudoType) && c.To.Equals(to)
	}
	return c.From.Equals(from) && c.To.Equals(to)
}

// Spec returns the helper node description.
func (c Converter) Spec() graph.NodeSpec {
	settings := make(map[string]cty.Value, len(c.Settings))
	for k, v := range c.Settings {
		settings[k] = v
	}
	return graph.NodeSpec{Kind: c.Kind, Settings: settings}
}

func (c Converter) String() string {
	return fmt.Sprintf("%s (%s -> %s, priority %d)", c.Name, types.String(c.From), types.String(c.To), c.Priority)
}

// RegisterConverter adds a conversion rule. Names must be unique.
func (r *Registry) RegisterConverter(c Converter) {
	for _, existing := range r.converters {
		if existing.Name == c.Name {
			panic(fmt.Sprintf("converter with name '%s' already registered", c.Name))
		}
	}
	slog.Debug("Registering converter.", "converter", c.String())
	r.converters = append(r.converters, c)
	sort.SliceStable(r.converters, func(i, j int) bool {
		a, b := r.converters[i], r.converters[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
	r.cache.Invalidate()
}

// Converters returns the rules in the order they are consulted.
func (r *Registry) Converters() []Converter {
	return append([]Converter(nil), r.converters...)
}
