package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/typecache"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all node kind modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the node kinds and conversion rules of one application
// instance. It implements graph.Kinds.
type Registry struct {
	kinds      map[string]*Kind
	converters []Converter
	cache      *typecache.Cache
}

var _ graph.Kinds = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithCache makes the registry use c instead of the process-wide cache.
func WithCache(c *typecache.Cache) Option {
	return func(r *Registry) { r.cache = c }
}

// New creates and initializes a new Registry instance.
func New(opts ...Option) *Registry {
	r := &Registry{
		kinds: make(map[string]*Kind),
		cache: typecache.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load registers every module in order.
func (r *Registry) Load(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// RegisterKind adds a node kind. Registering a name twice is a programming
// error and panics.
func (r *Registry) RegisterKind(k *Kind) {
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("node kind with name '%s' already registered", k.Name))
	}
	slog.Debug("Registering node kind.", "name", k.Name, "caps", k.Caps.String())
	r.kinds[k.Name] = k
}

// Kind looks up a node kind by name.
func (r *Registry) Kind(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// KindOf returns the kind of a node, or an error naming the missing kind.
func (r *Registry) KindOf(n *graph.Node) (*Kind, error) {
	k, ok := r.kinds[n.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", n.Kind)
	}
	return k, nil
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cache returns the lookup cache used by the registry.
func (r *Registry) Cache() *typecache.Cache {
	return r.cache
}

// Ports implements graph.Kinds.
func (r *Registry) Ports(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
	k, err := r.KindOf(n)
	if err != nil {
		return nil, err
	}
	return k.Ports(g, n)
}

// Converter implements graph.Kinds. Rules are tried in ascending priority,
// ties broken by name, and results are memoized in the cache.
func (r *Registry) Converter(from, to cty.Type) (graph.NodeSpec, bool) {
	return r.cache.Converter(from, to, func() (graph.NodeSpec, bool) {
		for _, c := range r.converters {
			if c.Matches(from, to) {
				return c.Spec(), true
			}
		}
		return graph.NodeSpec{}, false
	})
}
