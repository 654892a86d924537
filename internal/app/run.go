package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/artifactstore/sqlitestore"
	"github.com/specialistvlad/nodegraph/internal/build"
	"github.com/specialistvlad/nodegraph/internal/bulk"
	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/instance"
	"github.com/specialistvlad/nodegraph/internal/interp"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
)

// dialTimeout bounds the wait for the diagnostics channel.
const dialTimeout = 5 * time.Second

// Run executes the main application logic based on the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx)
		defer func() { _ = a.closeHealthcheckServer(ctx) }()
	}

	if a.config.DiagnosticsURL != "" {
		sock, err := diag.DialSocket(ctx, a.config.DiagnosticsURL, "/", diag.DefaultSocketEvent, dialTimeout)
		if err != nil {
			a.logger.Warn("Diagnostics channel unavailable, continuing without it.", "error", err)
		} else {
			defer sock.Close()
			a.sink = diag.Multi(a.sink, sock)
		}
	}

	if err := a.Load(ctx); err != nil {
		return err
	}

	var err error
	switch a.config.Mode {
	case ModeGenerate:
		_, err = a.Generate(ctx, a.config.Force)
	case ModeBuild:
		err = a.Build(ctx)
	default:
		err = a.Execute(ctx)
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// Execute interprets every loaded graph: activate, trigger the configured
// event, run up to Ticks host ticks and deactivate.
func (a *App) Execute(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	policy, err := interp.ParseErrorPolicy(a.config.ErrorPolicy)
	if err != nil {
		return err
	}
	it := interp.New(a.registry, interp.WithErrorPolicy(policy))
	host := newConsoleHost(a.outW)

	var result *multierror.Error
	fail := func(err error) {
		a.publish(ctx, "interp", err)
		result = multierror.Append(result, err)
	}

	a.logger.Info("🚀 Starting graphs...", "event", a.config.Event)
	var live []*instance.Instance
	for _, g := range a.Graphs() {
		inst, err := it.Activate(ctx, g, host)
		if err != nil {
			fail(fmt.Errorf("activating graph %q: %w", g.Name, err))
			continue
		}
		live = append(live, inst)
		if err := it.Trigger(ctx, inst, a.config.Event); err != nil {
			fail(fmt.Errorf("graph %q: %w", g.Name, err))
		}
	}

	ticks, err := host.Drain(ctx, a.config.Ticks)
	if err != nil {
		fail(fmt.Errorf("resuming continuations: %w", err))
	}
	if n := host.Pending(); n > 0 {
		a.logger.Warn("Continuations still waiting after the last tick.", "ticks", ticks, "pending", n)
	}

	for _, inst := range live {
		if err := it.Deactivate(ctx, inst); err != nil {
			fail(fmt.Errorf("deactivating graph %q: %w", inst.Graph.Name, err))
		}
	}
	a.logger.Info("🏁 Execution finished.", "graphs", len(live), "ticks", ticks)
	return result.ErrorOrNil()
}

// Generate writes Go sources for every loaded graph into OutDir. Graphs the
// artifact store has already seen unchanged are skipped unless force is set.
func (a *App) Generate(ctx context.Context, force bool) (*bulk.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	job := bulk.NewJob(a.registry, a.queue, store, a.sink, bulk.Options{
		OutDir:  a.config.OutDir,
		Package: a.config.Package,
		Workers: a.config.WorkerCount,
		Force:   force,
	})
	job.OnProgress = func(p bulk.Progress) {
		a.logger.Debug("Graph generated.", "graph", p.Graph, "done", p.Done, "total", p.Total, "skipped", p.Skipped)
	}
	return job.Run(ctx, a.Graphs())
}

func (a *App) openStore(ctx context.Context) (artifactstore.Store, error) {
	if a.config.ArtifactDB == "" {
		return artifactstore.NewMemory(), nil
	}
	store, err := sqlitestore.Open(ctx, a.config.ArtifactDB)
	if err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	return store, nil
}

// Build generates every graph and compiles the result with the interpreted
// builder. With Exec set the compiled programs are run like Execute runs
// graphs.
func (a *App) Build(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	report, err := a.Generate(ctx, true)
	if err != nil {
		return err
	}
	units := make([]build.Unit, 0, len(report.Outcomes))
	for _, o := range report.Generated() {
		units = append(units, build.Unit{File: o.File, Data: o.Data})
	}
	if len(units) == 0 {
		a.logger.Warn("No graphs to build.")
		return nil
	}

	res, err := build.NewInterpreted(a.config.Package).Build(ctx, units)
	// Generation diagnostics lead the result and were published by the job.
	if res != nil && len(res.Diagnostics) > len(report.Diagnostics) {
		a.sink.Publish(ctx, res.Diagnostics[len(report.Diagnostics):]...)
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if !a.config.Exec {
		return nil
	}
	return a.execCompiled(ctx, res.Binds)
}

func (a *App) execCompiled(ctx context.Context, binds map[string]nodert.BindFunc) error {
	host := newConsoleHost(a.outW)
	var result *multierror.Error
	fail := func(err error) {
		d := diag.FromError("nodert", diag.Error, err)
		var ne *nodert.NodeError
		if errors.As(err, &ne) {
			d.Code = "RuntimeError"
			d.GraphID, d.NodeID = ne.GraphID, nodeid.ID(ne.NodeID)
		}
		a.sink.Publish(ctx, d)
		result = multierror.Append(result, err)
	}

	var progs []*nodert.Program
	for _, g := range a.Graphs() {
		bind, ok := binds[g.ID]
		if !ok {
			continue
		}
		prog, err := bind(host)
		if err != nil {
			fail(fmt.Errorf("binding graph %q: %w", g.Name, err))
			continue
		}
		progs = append(progs, prog)
		if err := prog.Trigger(a.config.Event); err != nil {
			fail(fmt.Errorf("graph %q: %w", g.Name, err))
		}
	}

	ticks, err := host.Drain(ctx, a.config.Ticks)
	if err != nil {
		fail(fmt.Errorf("resuming continuations: %w", err))
	}
	for _, prog := range progs {
		if err := prog.Trigger(interp.DeactivateEvent); err != nil {
			fail(fmt.Errorf("deactivating graph %s: %w", prog.GraphID, err))
		}
	}
	a.logger.Info("🏁 Compiled execution finished.", "graphs", len(progs), "ticks", ticks)
	return result.ErrorOrNil()
}
