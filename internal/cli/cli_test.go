package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		wantExit bool
		wantErr  string
		check    func(t *testing.T, cfg *app.Config)
	}{
		{
			name:     "help",
			args:     []string{"-h"},
			wantExit: true,
		},
		{
			name:     "no path prints usage",
			args:     nil,
			wantExit: true,
		},
		{
			name: "defaults",
			args: []string{"graphs"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, "graphs", cfg.GraphPath)
				assert.Equal(t, app.ModeRun, cfg.Mode)
				assert.Equal(t, "start", cfg.Event)
				assert.Equal(t, 100, cfg.Ticks)
				assert.Equal(t, "text", cfg.LogFormat)
				assert.Equal(t, "info", cfg.LogLevel)
			},
		},
		{
			name: "generate",
			args: []string{"-mode", "generate", "-out", "gen", "-package", "graphs", "-artifact-db", "a.db", "-force", "-workers", "3", "graphs"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, app.ModeGenerate, cfg.Mode)
				assert.Equal(t, "gen", cfg.OutDir)
				assert.Equal(t, "graphs", cfg.Package)
				assert.Equal(t, "a.db", cfg.ArtifactDB)
				assert.True(t, cfg.Force)
				assert.Equal(t, 3, cfg.WorkerCount)
			},
		},
		{
			name: "build and exec",
			args: []string{"-mode", "build", "-exec", "-event", "tick", "-log-level", "DEBUG", "graphs"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.True(t, cfg.Exec)
				assert.Equal(t, "tick", cfg.Event)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
		{
			name:    "generate without output",
			args:    []string{"-mode", "generate", "graphs"},
			wantErr: "OutDir is required",
		},
		{
			name:    "bad log format",
			args:    []string{"-log-format", "xml", "graphs"},
			wantErr: "LogFormat must be one of",
		},
		{
			name:    "two paths",
			args:    []string{"a", "b"},
			wantErr: "expected one graph path",
		},
		{
			name:    "unknown flag",
			args:    []string{"-nope", "graphs"},
			wantErr: "flag provided but not defined",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)
			if tc.wantErr != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 2, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Nil(t, cfg)
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			tc.check(t, cfg)
		})
	}
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	t.Setenv("NODEGRAPH_LOG_FORMAT", "json")
	t.Setenv("NODEGRAPH_TICKS", "7")
	t.Setenv("NODEGRAPH_WORKERS", "many")

	cfg, _, err := Parse([]string{"graphs"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 7, cfg.Ticks)
	assert.Equal(t, 0, cfg.WorkerCount, "non-numeric values fall back to the default")

	cfg, _, err = Parse([]string{"-log-format", "text", "graphs"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat, "flags win over the environment")
}

func TestLoadDotEnv(t *testing.T) {
	// Register restores for the keys the file sets, then clear them.
	t.Setenv("NODEGRAPH_EVENT", "")
	t.Setenv("NODEGRAPH_MODE", "build")
	require.NoError(t, os.Unsetenv("NODEGRAPH_EVENT"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NODEGRAPH_EVENT=boot\nNODEGRAPH_MODE=generate\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "boot", os.Getenv("NODEGRAPH_EVENT"))
	assert.Equal(t, "build", os.Getenv("NODEGRAPH_MODE"), "existing variables are kept")

	cfg, _, err := Parse([]string{"graphs"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "boot", cfg.Event)
	assert.Equal(t, app.ModeBuild, cfg.Mode)
}
