package app

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/specialistvlad/nodegraph/internal/scheduler"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
)

// consoleHost prints to a writer and reads the process environment.
// Continuations wait on its ticker.
type consoleHost struct {
	*scheduler.Ticker

	mu     sync.Mutex
	out    io.Writer
	lookup func(string) (string, bool)
}

var _ nodert.Host = (*consoleHost)(nil)

func newConsoleHost(out io.Writer) *consoleHost {
	return &consoleHost{Ticker: scheduler.NewTicker(), out: out, lookup: os.LookupEnv}
}

// Invoke implements nodert.Host.
func (h *consoleHost) Invoke(op string, args ...any) (any, error) {
	switch op {
	case nodert.OpPrint:
		h.mu.Lock()
		defer h.mu.Unlock()
		_, err := fmt.Fprintln(h.out, args...)
		return nil, err
	case nodert.OpEnv:
		if len(args) != 1 {
			return nil, fmt.Errorf("env expects one argument, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("env name must be a string, got %T", args[0])
		}
		if v, ok := h.lookup(name); ok {
			return v, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported host operation %q", op)
	}
}
