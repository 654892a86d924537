package artifactstore

import (
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/specialistvlad/nodegraph/internal/codegen"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/vmihailenco/msgpack/v5"
)

// SidecarExt is appended to the generated file name.
const SidecarExt = ".map"

// SidecarVersion is written into every sidecar and checked on decode.
const SidecarVersion = 1

// Marshal encodes v with msgpack and compresses it with zstd.
func Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack encoding failed: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Unmarshal is the inverse of Marshal.
func Unmarshal(data []byte, v any) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompression failed: %w", err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("msgpack decoding failed: %w", err)
	}
	return nil
}

// Span is a run of generated lines produced by one node.
type Span struct {
	From int       `msgpack:"from"`
	To   int       `msgpack:"to"`
	Node nodeid.ID `msgpack:"node"`
}

// Sidecar is the .go.map file written next to a generated source file. It
// lets editors jump from a generated line, or a build diagnostic, to the
// node that produced it.
type Sidecar struct {
	Version     int               `msgpack:"version"`
	GraphID     string            `msgpack:"graph_id"`
	Hash        string            `msgpack:"hash"`
	Spans       []Span            `msgpack:"spans"`
	Symbols     map[string]string `msgpack:"symbols"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics,omitempty"`
}

// NewSidecar collects the line map, symbols and diagnostics of data.
// Consecutive lines of the same node are folded into one span.
func NewSidecar(data *codegen.GeneratedData) *Sidecar {
	s := &Sidecar{
		Version: SidecarVersion,
		GraphID: data.GraphID,
		Hash:    data.Hash,
		Symbols: data.Symbols,
	}
	lines := make([]int, 0, len(data.LineMap))
	for l := range data.LineMap {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	for _, l := range lines {
		id := data.LineMap[l]
		if n := len(s.Spans); n > 0 && s.Spans[n-1].Node == id && s.Spans[n-1].To == l-1 {
			s.Spans[n-1].To = l
			continue
		}
		s.Spans = append(s.Spans, Span{From: l, To: l, Node: id})
	}
	for _, ge := range data.Diagnostics {
		s.Diagnostics = append(s.Diagnostics, ge.Diagnostic())
	}
	return s
}

// NodeAt returns the node that produced line.
func (s *Sidecar) NodeAt(line int) (nodeid.ID, bool) {
	i := sort.Search(len(s.Spans), func(i int) bool { return s.Spans[i].To >= line })
	if i < len(s.Spans) && s.Spans[i].From <= line {
		return s.Spans[i].Node, true
	}
	return nodeid.None, false
}

// EncodeSidecar serializes s.
func EncodeSidecar(s *Sidecar) ([]byte, error) {
	return Marshal(s)
}

// DecodeSidecar parses a sidecar and checks its version.
func DecodeSidecar(data []byte) (*Sidecar, error) {
	var s Sidecar
	if err := Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Version != SidecarVersion {
		return nil, fmt.Errorf("unsupported sidecar version %d", s.Version)
	}
	return &s, nil
}
