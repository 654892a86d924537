package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg, err := NewConfig(Config{GraphPath: t.TempDir(), Event: "start", LogLevel: "debug"})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	a := NewApp(out, cfg)
	t.Cleanup(a.Close)
	return a, out
}

func TestHealthcheck(t *testing.T) {
	a, _ := newTestApp(t)
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	a.sink.Publish(context.Background(), diag.Diagnostic{
		Severity: diag.Warning,
		Source:   "codegen",
		Code:     "NameCollisionError",
		Message:  "renamed",
		GraphID:  "g1",
		NodeID:   nodeid.ID(4),
	})
	resp, err = http.Get(srv.URL + "/diagnostics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "warning", got[0]["severity"])
	assert.Equal(t, "g1", got[0]["graph_id"])
	assert.EqualValues(t, 4, got[0]["node_id"])
}

func TestCloseHealthcheckServer_NotRunning(t *testing.T) {
	a, _ := newTestApp(t)
	assert.NoError(t, a.closeHealthcheckServer(context.Background()))
}

func TestConsoleHost(t *testing.T) {
	var out bytes.Buffer
	h := newConsoleHost(&out)
	h.lookup = func(name string) (string, bool) {
		if name == "HOME" {
			return "/home/graph", true
		}
		return "", false
	}

	require.NoError(t, nodert.Print(h, "hello"))
	require.NoError(t, nodert.Print(h, 2.5))
	assert.Equal(t, "hello\n2.5\n", out.String())

	v, err := nodert.Env(h, "HOME")
	require.NoError(t, err)
	assert.Equal(t, "/home/graph", v)
	v, err = nodert.Env(h, "MISSING")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = h.Invoke("launch")
	assert.ErrorContains(t, err, "unsupported host operation")

	ran := false
	nodert.After(h, 1, func() error { ran = true; return nil })
	require.NoError(t, h.Tick(context.Background()))
	assert.True(t, ran)
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger("warn", "json", &out)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, out.String(), "hidden")
	assert.True(t, strings.HasPrefix(out.String(), "{"))
	assert.Contains(t, out.String(), `"msg":"shown"`)
}
