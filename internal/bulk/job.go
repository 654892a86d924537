package bulk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/codegen"
	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/hclgraph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Options configure a Job.
type Options struct {
	// OutDir receives <name>.go and <name>.go.map. Nothing is written when
	// it is empty.
	OutDir    string
	Package   string
	Workers   int
	Timestamp bool
	// Force regenerates graphs the store reports as unchanged.
	Force bool
}

// Progress is reported after every graph.
type Progress struct {
	Graph   string
	Done    int
	Total   int
	Skipped bool
	Err     error
}

// Outcome is the result for one graph.
type Outcome struct {
	GraphID   string
	GraphName string
	// File is the base name of the generated file.
	File string
	// Data is nil when the graph was skipped or failed.
	Data    *codegen.GeneratedData
	Skipped bool
	Err     error
}

// Report collects the outcomes of a run in input order.
type Report struct {
	Outcomes    []Outcome
	Diagnostics []diag.Diagnostic
	Canceled    bool
}

// Generated returns the outcomes that produced source.
func (r *Report) Generated() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Data != nil {
			out = append(out, o)
		}
	}
	return out
}

// Job generates a set of graphs.
type Job struct {
	reg   *registry.Registry
	queue *scheduler.Queue
	store artifactstore.Store
	sink  diag.Sink
	opts  Options

	// OnProgress, when set, is called after every graph. Calls are
	// serialized.
	OnProgress func(Progress)

	canceled atomic.Bool
	done     atomic.Int64
	mu       sync.Mutex
}

// NewJob creates a job. queue, store and sink may be nil: without a queue
// graphs are snapshotted on the calling goroutine, without a store nothing
// is skipped.
func NewJob(reg *registry.Registry, queue *scheduler.Queue, store artifactstore.Store, sink diag.Sink, opts Options) *Job {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Package == "" {
		opts.Package = codegen.DefaultPackage
	}
	return &Job{reg: reg, queue: queue, store: store, sink: sink, opts: opts}
}

// Cancel stops the job. Graphs not yet started are skipped and a graph in
// progress stops at its next body.
func (j *Job) Cancel() {
	j.canceled.Store(true)
}

type snapshot struct {
	name string
	file string
	src  []byte
}

// Run generates graphs. The returned error joins per-graph failures and
// wraps codegen.ErrCanceled when the job was canceled; the report is
// returned either way.
func (j *Job) Run(ctx context.Context, graphs []*graph.Graph) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	snaps, err := j.snapshot(ctx, graphs)
	if err != nil {
		return nil, err
	}
	if j.opts.OutDir != "" {
		if err := os.MkdirAll(j.opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	logger.Info("Starting bulk generation.", "graphs", len(snaps), "workers", j.opts.Workers)

	report := &Report{Outcomes: make([]Outcome, len(snaps))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.Workers)
	for i, s := range snaps {
		g.Go(func() error {
			report.Outcomes[i] = j.generate(gctx, s)
			j.progress(report.Outcomes[i], len(snaps))
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, o := range report.Outcomes {
		if o.Data != nil {
			for _, ge := range o.Data.Diagnostics {
				report.Diagnostics = append(report.Diagnostics, ge.Diagnostic())
			}
		}
		switch {
		case errors.Is(o.Err, codegen.ErrCanceled):
			report.Canceled = true
		case o.Err != nil:
			result = multierror.Append(result, fmt.Errorf("graph %q: %w", o.GraphName, o.Err))
		}
	}
	if report.Canceled || j.canceled.Load() {
		report.Canceled = true
		result = multierror.Append(result, codegen.ErrCanceled)
	}
	if j.sink != nil && len(report.Diagnostics) > 0 {
		j.sink.Publish(ctx, report.Diagnostics...)
	}
	logger.Info("Bulk generation finished.", "graphs", len(snaps), "generated", len(report.Generated()), "canceled", report.Canceled)
	return report, result.ErrorOrNil()
}

// snapshot encodes every graph on the queue goroutine and picks file names.
func (j *Job) snapshot(ctx context.Context, graphs []*graph.Graph) ([]snapshot, error) {
	snaps := make([]snapshot, len(graphs))
	take := func() error {
		for i, g := range graphs {
			src, err := hclgraph.Encode(hclgraph.EncodeOptions{}, g)
			if err != nil {
				return err
			}
			snaps[i] = snapshot{name: g.Name, src: src}
		}
		return nil
	}
	var err error
	if j.queue != nil {
		err = j.queue.Submit(ctx, take)
	} else {
		err = take()
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotting graphs: %w", err)
	}

	used := map[string]bool{}
	for i := range snaps {
		base := strcase.ToSnake(snaps[i].name)
		if base == "" {
			base = "graph"
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		snaps[i].file = name + ".go"
	}
	return snaps, nil
}

func (j *Job) generate(ctx context.Context, s snapshot) Outcome {
	out := Outcome{GraphName: s.name, File: s.file}
	if j.canceled.Load() || ctx.Err() != nil {
		out.Err = codegen.ErrCanceled
		return out
	}
	logger := ctxlog.FromContext(ctx).With("graph", s.name)

	decoded, err := hclgraph.Decode(ctx, s.src, s.file, j.reg)
	if err != nil {
		out.Err = fmt.Errorf("decoding snapshot: %w", err)
		return out
	}
	g := decoded[0]
	out.GraphID = g.ID

	hash, err := hclgraph.Hash(g)
	if err != nil {
		out.Err = err
		return out
	}
	if j.store != nil && !j.opts.Force {
		same, err := artifactstore.Unchanged(ctx, j.store, g.ID, hash)
		if err != nil {
			out.Err = err
			return out
		}
		if same {
			logger.Debug("Graph unchanged, skipping.", "hash", hash)
			out.Skipped = true
			return out
		}
	}

	gen := codegen.New(j.reg, codegen.Options{
		Package:   j.opts.Package,
		Timestamp: j.opts.Timestamp,
		Cancel:    j.canceled.Load,
	})
	data, err := gen.Generate(ctx, g)
	if err != nil {
		out.Err = err
		return out
	}
	if err := j.write(s.file, data); err != nil {
		out.Err = err
		return out
	}
	if j.store != nil {
		rec := &artifactstore.Record{
			GraphID:   g.ID,
			GraphName: g.Name,
			Hash:      data.Hash,
			File:      s.file,
			Package:   data.Package,
		}
		for _, ge := range data.Diagnostics {
			rec.Diagnostics = append(rec.Diagnostics, ge.Diagnostic())
		}
		if err := j.store.Put(ctx, rec); err != nil {
			out.Err = err
			return out
		}
	}
	out.Data = data
	return out
}

// write stores the source and its sidecar under OutDir.
func (j *Job) write(file string, data *codegen.GeneratedData) error {
	if j.opts.OutDir == "" {
		return nil
	}
	path := filepath.Join(j.opts.OutDir, file)
	if err := os.WriteFile(path, data.Source, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	sc, err := artifactstore.EncodeSidecar(artifactstore.NewSidecar(data))
	if err != nil {
		return fmt.Errorf("encoding line map of %s: %w", file, err)
	}
	if err := os.WriteFile(path+artifactstore.SidecarExt, sc, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path+artifactstore.SidecarExt, err)
	}
	return nil
}

func (j *Job) progress(o Outcome, total int) {
	done := int(j.done.Add(1))
	if j.OnProgress == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OnProgress(Progress{Graph: o.GraphName, Done: done, Total: total, Skipped: o.Skipped, Err: o.Err})
}
