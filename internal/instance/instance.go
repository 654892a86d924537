// Package instance holds the runtime state of a graph bound to a host: the
// member storage shared by every traversal and the per-traversal frames.
package instance

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// Instance is one activation of a graph against a host. Member storage is
// guarded so that hosts may read properties from other goroutines; frames
// are owned by the interpreter goroutine.
type Instance struct {
	ID    string
	Graph *graph.Graph
	Host  nodert.Host

	mu        sync.RWMutex
	state     map[string]cty.Value
	frames    map[*Frame]struct{}
	nextFrame int
	destroyed bool
}

// New creates an instance with every variable and property at its default.
func New(g *graph.Graph, host nodert.Host) *Instance {
	inst := &Instance{
		ID:     uuid.NewString(),
		Graph:  g,
		Host:   host,
		state:  make(map[string]cty.Value),
		frames: make(map[*Frame]struct{}),
	}
	for _, v := range g.Variables() {
		inst.state[v.Name] = v.Default
	}
	for _, p := range g.Properties() {
		inst.state[p.Name] = p.Default
	}
	return inst
}

// Get reads a variable or property.
func (i *Instance) Get(name string) (cty.Value, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.state[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("no variable or property named %q", name)
	}
	return v, nil
}

// Set writes a variable or property, converting the value to the declared
// type.
func (i *Instance) Set(name string, v cty.Value) error {
	t, ok := i.Graph.StateType(name)
	if !ok {
		return fmt.Errorf("no variable or property named %q", name)
	}
	cv, err := types.Coerce(v, t)
	if err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state[name] = cv
	return nil
}

// Property returns the native value of a property for the host.
func (i *Instance) Property(name string) (any, bool) {
	if i.Graph.Property(name) == nil {
		return nil, false
	}
	v, err := i.Get(name)
	if err != nil {
		return nil, false
	}
	native, err := types.ToNative(v)
	if err != nil {
		return nil, false
	}
	return native, true
}

// NewFrame starts a traversal. Frames of function calls pass their caller as
// parent so that depth is tracked.
func (i *Instance) NewFrame(entry nodeid.ID, function string, parent *Frame) *Frame {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextFrame++
	f := newFrame(i.nextFrame, entry, function)
	if parent != nil {
		f.Depth = parent.Depth + 1
	}
	i.frames[f] = struct{}{}
	return f
}

// Release drops a frame once its traversal and continuations are finished.
func (i *Instance) Release(f *Frame) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.frames, f)
}

// Live returns the number of frames not yet released.
func (i *Instance) Live() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.frames)
}

// Destroy releases every frame and marks the instance unusable.
func (i *Instance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames = make(map[*Frame]struct{})
	i.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (i *Instance) Destroyed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.destroyed
}
