package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/nodegraph/internal/app"
)

// EnvPrefix prefixes the environment variables that provide flag defaults.
const EnvPrefix = "NODEGRAPH_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// LoadDotEnv adds the variables of the given .env files to the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No .env file found.", "path", p)
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
		slog.Debug("Loaded .env file.", "path", p)
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("Ignoring non-numeric environment value.", "key", EnvPrefix+key, "value", v)
	}
	return def
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flag defaults are read from NODEGRAPH_* environment variables.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("nodegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nodegraph - Runs node graphs and compiles them to Go.

Usage:
  nodegraph [options] GRAPH_PATH

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Modes:
  run       interpret every graph: trigger -event, then run up to -ticks ticks
  generate  write <graph>.go and <graph>.go.map for every graph into -out
  build     generate and compile every graph; -exec runs the result

Options:
`)
		flagSet.PrintDefaults()
	}

	modeFlag := flagSet.String("mode", envString("MODE", app.ModeRun), "Run mode. Options: 'run', 'generate' or 'build'.")
	eventFlag := flagSet.String("event", envString("EVENT", "start"), "Event to trigger on every graph.")
	ticksFlag := flagSet.Int("ticks", envInt("TICKS", 100), "Maximum number of host ticks to run after the event.")
	policyFlag := flagSet.String("error-policy", envString("ERROR_POLICY", "return"), "What to do with failed traversals. Options: 'return' or 'log'.")
	outFlag := flagSet.String("out", envString("OUT", ""), "Directory that receives generated Go files.")
	pkgFlag := flagSet.String("package", envString("PACKAGE", ""), "Package name of generated files.")
	dbFlag := flagSet.String("artifact-db", envString("ARTIFACT_DB", ""), "SQLite file remembering generated graphs. Empty keeps them in memory.")
	forceFlag := flagSet.Bool("force", false, "Regenerate graphs that did not change.")
	execFlag := flagSet.Bool("exec", false, "Run the compiled graphs in build mode.")
	diagFlag := flagSet.String("diagnostics-url", envString("DIAGNOSTICS_URL", ""), "socket.io server that receives diagnostics.")
	healthPortFlag := flagSet.Int("healthcheck-port", envInt("HEALTHCHECK_PORT", 0), "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", envString("LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", envString("LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", envInt("WORKERS", 0), "Number of concurrent generation workers. 0 uses every CPU.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := flagSet.Arg(0)
	if path == "" {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one graph path, got %d", flagSet.NArg())}
	}

	config, err := app.NewConfig(app.Config{
		GraphPath:       path,
		Mode:            *modeFlag,
		Event:           *eventFlag,
		Ticks:           *ticksFlag,
		ErrorPolicy:     *policyFlag,
		OutDir:          *outFlag,
		ArtifactDB:      *dbFlag,
		Package:         *pkgFlag,
		Force:           *forceFlag,
		Exec:            *execFlag,
		DiagnosticsURL:  *diagFlag,
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
