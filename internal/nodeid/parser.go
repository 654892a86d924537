// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
)

// refRegex matches the canonical port reference form, e.g. `12.value`.
var refRegex = regexp.MustCompile(`^([0-9]+)\.([a-zA-Z_][a-zA-Z0-9_]*)$`)

// String serializes the reference into its canonical `node.port` form.
func (r PortRef) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Node.String() + "." + r.Port
}

// ParseRef creates a PortRef by parsing its canonical string representation.
func ParseRef(raw string) (PortRef, error) {
	if raw == "" {
		return PortRef{}, fmt.Errorf("port reference cannot be empty")
	}

	matches := refRegex.FindStringSubmatch(raw)
	if matches == nil {
		return PortRef{}, fmt.Errorf("invalid port reference format: %q", raw)
	}

	n, err := strconv.Atoi(matches[1])
	if err != nil {
		// Unreachable due to regex `[0-9]+` unless the number overflows.
		return PortRef{}, fmt.Errorf("invalid node id in port reference %q: %w", raw, err)
	}
	if n <= 0 {
		return PortRef{}, fmt.Errorf("node id must be positive in port reference %q", raw)
	}

	return PortRef{Node: ID(n), Port: matches[2]}, nil
}

// ParseID parses the decimal form of an element ID.
func ParseID(raw string) (ID, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return None, fmt.Errorf("invalid element id %q: %w", raw, err)
	}
	if n <= 0 {
		return None, fmt.Errorf("element id must be positive, got %d", n)
	}
	return ID(n), nil
}
