package testutil

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/nodegraph/internal/scheduler"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
)

// RecordingHost is a nodert.Host that records printed lines and serves
// environment values from a map. Continuations run on its Ticker.
type RecordingHost struct {
	*scheduler.Ticker

	mu    sync.Mutex
	lines []string
	Env   map[string]string
	// FailPrint makes every print fail with this error when set.
	FailPrint error
}

var _ nodert.Host = (*RecordingHost)(nil)

// NewRecordingHost creates a host with an empty environment.
func NewRecordingHost() *RecordingHost {
	return &RecordingHost{Ticker: scheduler.NewTicker(), Env: map[string]string{}}
}

// Invoke implements nodert.Host.
func (h *RecordingHost) Invoke(op string, args ...any) (any, error) {
	switch op {
	case nodert.OpPrint:
		if h.FailPrint != nil {
			return nil, h.FailPrint
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.lines = append(h.lines, fmt.Sprint(args...))
		return nil, nil
	case nodert.OpEnv:
		if len(args) != 1 {
			return nil, fmt.Errorf("env expects one argument")
		}
		name, _ := args[0].(string)
		v, ok := h.Env[name]
		if !ok {
			return nil, nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported host operation %q", op)
	}
}

// Lines returns a copy of everything printed so far.
func (h *RecordingHost) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

// Reset forgets the printed lines.
func (h *RecordingHost) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = nil
}
