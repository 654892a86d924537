package diag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locatedErr struct{}

func (locatedErr) Error() string { return "boom" }
func (locatedErr) Location() (string, nodeid.ID) { return "g-1", 7 }
func (locatedErr) DiagnosticCode() string { return "TestError" }

func TestFromError(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		wantGraph string
		wantNode  nodeid.ID
		wantCode  string
	}{
		{name: "plain", err: errors.New("plain")},
		{name: "located", err: locatedErr{}, wantGraph: "g-1", wantNode: 7, wantCode: "TestError"},
		{name: "wrapped", err: fmt.Errorf("outer: %w", locatedErr{}), wantGraph: "g-1", wantNode: 7, wantCode: "TestError"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := FromError("test", Error, tc.err)
			assert.Equal(t, tc.err.Error(), d.Message)
			assert.Equal(t, tc.wantGraph, d.GraphID)
			assert.Equal(t, tc.wantNode, d.NodeID)
			assert.Equal(t, tc.wantCode, d.Code)
		})
	}
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{Info, Warning, Error} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back Severity
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
}

func TestCollector_Limit(t *testing.T) {
	c := NewCollector(2)
	ctx := context.Background()
	c.Publish(ctx, Diagnostic{Message: "a"}, Diagnostic{Message: "b"})
	c.Publish(ctx, Diagnostic{Message: "c"})

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Message)
	assert.Equal(t, "c", items[1].Message)

	c.Reset()
	assert.Empty(t, c.Items())
}

func TestMulti_SkipsNilSinks(t *testing.T) {
	a, b := NewCollector(0), NewCollector(0)
	m := Multi(a, nil, b)
	m.Publish(context.Background(), Diagnostic{Severity: Error, Message: "x"})
	assert.Len(t, a.Items(), 1)
	assert.Len(t, b.Items(), 1)
	assert.True(t, HasErrors(a.Items()))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	LogSink{Logger: logger}.Publish(context.Background(),
		Diagnostic{Severity: Warning, Source: "codegen", Code: "NameCollisionError", Message: "renamed", NodeID: 3},
	)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "Diagnostic reported.")
	assert.Contains(t, out, "code=NameCollisionError")
	assert.Contains(t, out, "nodeID=3")
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Severity: Error, Code: "BuildError", File: "graphs.go", Line: 12, NodeID: 4, Message: "undefined: x"}
	assert.Equal(t, "error [BuildError] graphs.go:12 node 4: undefined: x", d.String())
	assert.Equal(t, map[string]any{
		"severity": "error", "source": "", "message": "undefined: x", "code": "BuildError",
		"node_id": 4, "file": "graphs.go", "line": 12,
	}, payload(d))
}
