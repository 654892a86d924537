package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an application run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
	// Dir is the temporary directory the graph files were written to.
	Dir string
}

// RunApp writes files (relative name to HCL source) into a temporary
// directory, points cfg at it and runs the application once. Empty
// OutDir and ArtifactDB values in cfg are left empty; relative ones are
// resolved against the temporary directory.
func RunApp(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunAppWithContext(context.Background(), t, files, cfg)
}

// RunAppWithContext is RunApp with a caller-provided context.
func RunAppWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	graphDir := filepath.Join(tmpDir, "graphs")
	require.NoError(t, os.Mkdir(graphDir, 0o755))
	for name, content := range files {
		path := filepath.Join(graphDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg.GraphPath = graphDir
	if cfg.OutDir != "" && !filepath.IsAbs(cfg.OutDir) {
		cfg.OutDir = filepath.Join(tmpDir, cfg.OutDir)
	}
	if cfg.ArtifactDB != "" && !filepath.IsAbs(cfg.ArtifactDB) {
		cfg.ArtifactDB = filepath.Join(tmpDir, cfg.ArtifactDB)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	var testApp *app.App
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		testApp = app.NewApp(out, config)
		t.Cleanup(testApp.Close)
		runErr = testApp.Run(ctx)
	}()

	if os.Getenv("NODEGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
	}
	return &HarnessResult{Output: out.String(), Err: runErr, App: testApp, Dir: tmpDir}
}
