package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/hclgraph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/scheduler"
)

// diagnosticsLimit bounds the diagnostics kept for the /diagnostics endpoint.
const diagnosticsLimit = 500

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config

	// queue serializes graph edits with bulk snapshots. It is served from
	// NewApp until Close.
	queue     *scheduler.Queue
	collector *diag.Collector
	sink      diag.Sink

	mu         sync.Mutex
	graphs     []*graph.Graph
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Graphs are loaded by Run.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.Load(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", len(reg.Names()))

	if err := reg.Validate(ctx); err != nil {
		// A kind without its behaviors is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	collector := diag.NewCollector(diagnosticsLimit)
	a := &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		config:    cfg,
		queue:     scheduler.NewQueue(),
		collector: collector,
		sink:      diag.Multi(diag.LogSink{Logger: logger}, collector),
	}
	go func() {
		if err := a.queue.Run(context.Background()); err != nil {
			logger.Error("Edit queue stopped.", "error", err)
		}
	}()
	return a
}

// Close stops the edit queue. The App cannot generate afterwards.
func (a *App) Close() {
	a.queue.Close()
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Graphs returns the graphs loaded by the last Load.
func (a *App) Graphs() []*graph.Graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*graph.Graph(nil), a.graphs...)
}

// Diagnostics returns the most recent diagnostics.
func (a *App) Diagnostics() []diag.Diagnostic {
	return a.collector.Items()
}

// Load reads every graph under the configured path.
func (a *App) Load(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if _, err := os.Stat(a.config.GraphPath); err != nil {
		return fmt.Errorf("failed to load graphs: %w", err)
	}
	graphs, err := hclgraph.LoadFiles(ctx, a.registry, a.config.GraphPath)
	if err != nil {
		a.publish(ctx, "load", err)
		return fmt.Errorf("failed to load graphs: %w", err)
	}
	a.mu.Lock()
	a.graphs = graphs
	a.mu.Unlock()
	if len(graphs) == 0 {
		a.logger.Warn("No graphs found.", "path", a.config.GraphPath)
	} else {
		a.logger.Info("Graphs loaded successfully.", "graphs", len(graphs))
	}
	return nil
}

// Reload drops cached type parses and converter lookups, then loads the
// graphs again. Call it after the set of kinds or the graph files change.
func (a *App) Reload(ctx context.Context) error {
	cache := a.registry.Cache()
	cache.Invalidate()
	a.logger.Debug("Type cache invalidated.", "generation", cache.Generation())
	return a.Load(ctx)
}

func (a *App) publish(ctx context.Context, source string, err error) {
	a.sink.Publish(ctx, diag.FromError(source, diag.Error, err))
}
