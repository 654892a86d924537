package build

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// BuildError reports a merged unit that failed to compile.
type BuildError struct {
	Diagnostics []diag.Diagnostic
}

func (e *BuildError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "build failed"
	case 1:
		return fmt.Sprintf("build failed: %s", e.Diagnostics[0])
	default:
		return fmt.Sprintf("build failed: %s (and %d more)", e.Diagnostics[0], len(e.Diagnostics)-1)
	}
}

// Location implements diag.Located with the first diagnostic.
func (e *BuildError) Location() (string, nodeid.ID) {
	if len(e.Diagnostics) == 0 {
		return "", nodeid.None
	}
	return e.Diagnostics[0].GraphID, e.Diagnostics[0].NodeID
}

// DiagnosticCode implements diag.Coded.
func (e *BuildError) DiagnosticCode() string { return "BuildError" }
