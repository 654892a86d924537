package codegen

import (
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9]+`)

// camel turns an arbitrary name into an exported-style identifier part.
func camel(s string) string {
	s = strings.TrimSpace(nonIdent.ReplaceAllString(s, " "))
	return strcase.ToCamel(s)
}

// lowerCamel is camel with a lower-case first letter. Names that would
// start with a digit get an n prefix.
func lowerCamel(s string) string {
	s = strings.TrimSpace(nonIdent.ReplaceAllString(s, " "))
	out := strcase.ToLowerCamel(s)
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "n" + camel(s)
	}
	return out
}

// reserved identifiers used by the generated Bind function itself.
var reserved = map[string]bool{"p": true, "h": true, "err": true, "nodert": true}

// symbols is the per-graph symbol table. Keys are port references for node
// values ("12.result") and "<member kind>.<name>" for members.
type symbols struct {
	graphID string
	byKey   map[string]string
	used    map[string]bool
	diags   []*GenerationError
}

func newSymbols(graphID string) *symbols {
	return &symbols{graphID: graphID, byKey: make(map[string]string), used: make(map[string]bool)}
}

func (s *symbols) free(name string) bool {
	return !s.used[name] && !reserved[name] && !token.IsKeyword(name)
}

// unique returns want, or want with the smallest numeric suffix that is not
// taken yet, and marks it as taken.
func (s *symbols) unique(want string) string {
	name := want
	for i := 2; !s.free(name); i++ {
		name = want + strconv.Itoa(i)
	}
	s.used[name] = true
	return name
}

// register binds key to an identifier derived from want. A rename is
// reported as a NameCollisionError warning attributed to id.
func (s *symbols) register(key, want string, id nodeid.ID) string {
	name := s.unique(want)
	if name != want {
		e := genError(NameCollisionError, id, "%s maps to %s which is already taken, using %s", key, want, name)
		e.Severity = diag.Warning
		s.diags = append(s.diags, e)
	}
	s.byKey[key] = name
	return name
}

func (s *symbols) lookup(key string) (string, bool) {
	name, ok := s.byKey[key]
	return name, ok
}

// nodeBase is the readable part of a node symbol: the element name or the
// last segment of the kind.
func nodeBase(e *graph.Element) string {
	name := e.Name
	if name == "" {
		name = e.Node.Kind
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
	}
	return lowerCamel(name)
}

func portSymbol(e *graph.Element, port string) string {
	return nodeBase(e) + e.ID.String() + camel(port)
}

func memberKey(kind graph.MemberKind, name string) string {
	return kind.String() + "." + name
}

func memberSymbol(prefix, name string) string {
	c := camel(name)
	if c == "" {
		c = "Member"
	}
	return prefix + c
}
