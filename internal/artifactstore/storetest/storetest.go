// Package storetest checks artifactstore.Store implementations.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the behavior every store must share. open returns an empty
// store; Run closes it.
func Run(t *testing.T, open func(t *testing.T) artifactstore.Store) {
	t.Run("missing record", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		_, err := s.Get(context.Background(), "nope")
		require.ErrorIs(t, err, artifactstore.ErrNotFound)
		require.ErrorIs(t, s.Delete(context.Background(), "nope"), artifactstore.ErrNotFound)

		same, err := artifactstore.Unchanged(context.Background(), s, "nope", "h")
		require.NoError(t, err)
		assert.False(t, same)
	})

	t.Run("put get list delete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		b := &artifactstore.Record{GraphID: "b", GraphName: "beta", Hash: "h2", File: "beta.go", Package: "graphs"}
		a := &artifactstore.Record{
			GraphID: "a", GraphName: "alpha", Hash: "h1", File: "alpha.go", Package: "graphs",
			Diagnostics: []diag.Diagnostic{{Severity: diag.Warning, Source: "codegen", Code: "NameCollisionError", Message: "renamed", GraphID: "a", NodeID: 4}},
		}
		require.NoError(t, s.Put(ctx, b))
		require.NoError(t, s.Put(ctx, a))
		assert.False(t, a.Stored.IsZero())

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, a.Hash, got.Hash)
		assert.Equal(t, a.File, got.File)
		assert.Equal(t, a.Diagnostics, got.Diagnostics)
		assert.True(t, a.Stored.Equal(got.Stored))

		same, err := artifactstore.Unchanged(ctx, s, "a", "h1")
		require.NoError(t, err)
		assert.True(t, same)
		same, err = artifactstore.Unchanged(ctx, s, "a", "other")
		require.NoError(t, err)
		assert.False(t, same)

		a.Hash = "h3"
		require.NoError(t, s.Put(ctx, a))
		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].GraphID)
		assert.Equal(t, "h3", all[0].Hash)
		assert.Equal(t, "b", all[1].GraphID)

		require.NoError(t, s.Delete(ctx, "a"))
		_, err = s.Get(ctx, "a")
		require.ErrorIs(t, err, artifactstore.ErrNotFound)
	})

	t.Run("rejects records without id", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		require.Error(t, s.Put(context.Background(), &artifactstore.Record{Hash: "h"}))
	})

	t.Run("concurrent writers", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := string(rune('a' + i))
				assert.NoError(t, s.Put(ctx, &artifactstore.Record{GraphID: id, Hash: id}))
			}(i)
		}
		wg.Wait()
		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 8)
	})
}
