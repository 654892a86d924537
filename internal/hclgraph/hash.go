package hclgraph

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/specialistvlad/nodegraph/internal/graph"
)

// Hash returns the content hash of g: the SHA-256 of its canonical encoding,
// which leaves out metadata.
func Hash(g *graph.Graph) (string, error) {
	src, err := Encode(EncodeOptions{OmitMetadata: true}, g)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:]), nil
}
