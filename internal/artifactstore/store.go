package artifactstore

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/nodegraph/internal/diag"
)

// ErrNotFound is returned when no record exists for a graph.
var ErrNotFound = errors.New("artifact not found")

// Record describes the last generated artifact of a graph.
type Record struct {
	GraphID   string `msgpack:"graph_id"`
	GraphName string `msgpack:"graph_name"`
	// Hash is the content hash of the graph the artifact was generated from.
	Hash    string `msgpack:"hash"`
	File    string `msgpack:"file"`
	Package string `msgpack:"package"`
	// Stored is set by the store on Put.
	Stored      time.Time         `msgpack:"stored"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics,omitempty"`
}

// Store keeps one record per graph. Implementations are safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, graphID string) (*Record, error)
	Put(ctx context.Context, r *Record) error
	// List returns every record ordered by graph id.
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, graphID string) error
	Close() error
}

// Unchanged reports whether s holds a record for graphID generated from
// hash.
func Unchanged(ctx context.Context, s Store, graphID, hash string) (bool, error) {
	r, err := s.Get(ctx, graphID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Hash == hash, nil
}
