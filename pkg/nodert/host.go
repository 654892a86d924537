package nodert

import (
	"fmt"
)

// Host operation names passed to Host.Invoke.
const (
	OpPrint = "print"
	OpEnv   = "env"
)

// Host is the live object a graph runs against.
type Host interface {
	// Invoke performs a named host operation.
	Invoke(op string, args ...any) (any, error)
	// Schedule registers resume to run after the given number of ticks.
	Schedule(ticks int, resume func() error)
}

// Print sends the display form of v to the host.
func Print(h Host, v any) error {
	_, err := h.Invoke(OpPrint, ToString(v))
	return err
}

// Env reads a named value from the host environment.
func Env(h Host, name string) (string, error) {
	v, err := h.Invoke(OpEnv, name)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("host returned %T for environment value %q", v, name)
	}
}

// After schedules fn to run after ticks host ticks. Negative counts are
// treated as zero.
func After(h Host, ticks int, fn func() error) {
	if ticks < 0 {
		ticks = 0
	}
	h.Schedule(ticks, fn)
}
