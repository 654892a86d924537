package artifactstore_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/codegen"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/testutil"
	"github.com/specialistvlad/nodegraph/modules/print"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecar(t *testing.T) {
	reg := testutil.NewRegistry()
	b := testutil.NewBuilder(t, reg, "hello")
	start := b.Event("start")
	first, second := b.Add(print.KindPrint), b.Add(print.KindPrint)
	b.Input(first, "value", "a")
	b.Input(second, "value", "b")
	b.Flow(start, first, second)
	data, err := codegen.New(reg, codegen.Options{}).Generate(context.Background(), b.G)
	require.NoError(t, err)

	sc := artifactstore.NewSidecar(data)
	raw, err := artifactstore.EncodeSidecar(sc)
	require.NoError(t, err)
	got, err := artifactstore.DecodeSidecar(raw)
	require.NoError(t, err)

	assert.Equal(t, data.GraphID, got.GraphID)
	assert.Equal(t, data.Hash, got.Hash)
	assert.Equal(t, data.Symbols, got.Symbols)
	require.Len(t, got.Spans, 2, "one span per print node")
	for line, id := range data.LineMap {
		n, ok := got.NodeAt(line)
		require.True(t, ok, "line %d", line)
		assert.Equal(t, id, n)
	}
	_, ok := got.NodeAt(1)
	assert.False(t, ok, "header lines belong to no node")
	assert.Equal(t, []nodeid.ID{first, second}, []nodeid.ID{got.Spans[0].Node, got.Spans[1].Node})
}

func TestDecodeSidecar_Errors(t *testing.T) {
	_, err := artifactstore.DecodeSidecar([]byte("not zstd"))
	require.Error(t, err)

	raw, err := artifactstore.Marshal(&artifactstore.Sidecar{Version: 99})
	require.NoError(t, err)
	_, err = artifactstore.DecodeSidecar(raw)
	require.ErrorContains(t, err, "unsupported sidecar version 99")
}
