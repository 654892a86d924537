package codegen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

var (
	markerRe = regexp.MustCompile(`^\s*// node (\d+) \(`)
	constRe  = regexp.MustCompile(`^const \w+ = "([^"]*)"`)
)

// Origin is the graph element a generated line was produced for.
type Origin struct {
	GraphID string
	NodeID  nodeid.ID
}

// origins maps the lines of formatted source to the node markers that
// precede them. A line indented at most once ends the attribution: those
// are the Bind function's own statements.
func origins(src []byte) map[int]Origin {
	out := make(map[int]Origin)
	graphID := ""
	cur := nodeid.None
	for i, line := range strings.Split(string(src), "\n") {
		if m := constRe.FindStringSubmatch(line); m != nil {
			graphID, cur = m[1], nodeid.None
			continue
		}
		if m := markerRe.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[1])
			cur = nodeid.ID(id)
			continue
		}
		trimmed := strings.TrimLeft(line, "\t")
		if trimmed == "" {
			continue
		}
		if len(line)-len(trimmed) <= 1 {
			cur = nodeid.None
			continue
		}
		if cur.IsValid() {
			out[i+1] = Origin{GraphID: graphID, NodeID: cur}
		}
	}
	return out
}
