// Package pipeline plans binding work from a build graph and runs it: each
// translation unit is parsed, built into a tree, and bound, with files
// processed in parallel and results aggregated in plan order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/features"
	"github.com/Sumatoshi-tech/clangbind/pkg/observability"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

const instrumentationName = "clangbind/pipeline"

// ErrNoFrontend is returned by New without a front-end.
var ErrNoFrontend = errors.New("pipeline needs a front-end")

// Options configures a Runner. Zero values pick defaults.
type Options struct {
	Frontend  ast.Frontend
	Generator *bind.Generator
	Reflector *features.Reflector
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Meter     metric.Meter
	// RunID tags logs and spans. Empty generates a UUID.
	RunID string
	// Workers bounds parallel file tasks. Zero means GOMAXPROCS.
	Workers int
	// Timeout is the wall-clock budget of one file. Zero disables it.
	Timeout time.Duration
}

// Runner executes plans.
type Runner struct {
	builder   *parse.Builder
	generator *bind.Generator
	logger    *slog.Logger
	tracer    trace.Tracer
	red       *observability.REDMetrics
	counts    *observability.BindMetrics
	runID     string
	workers   int
	timeout   time.Duration
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Frontend == nil {
		return nil, ErrNoFrontend
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return nil, err
	}

	counts, err := observability.NewBindMetrics(meter)
	if err != nil {
		return nil, err
	}

	gen := opts.Generator
	if gen == nil {
		gen = bind.New(bind.Options{Logger: logger, Tracer: tracer})
	}

	builderOpts := []parse.Option{parse.WithLogger(logger), parse.WithTracer(tracer)}
	if opts.Reflector != nil {
		builderOpts = append(builderOpts, parse.WithReflector(opts.Reflector))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Runner{
		builder:   parse.NewBuilder(opts.Frontend, builderOpts...),
		generator: gen,
		logger:    logger,
		tracer:    tracer,
		red:       red,
		counts:    counts,
		runID:     runID,
		workers:   workers,
		timeout:   opts.Timeout,
	}, nil
}

// RunID returns the identifier attached to this runner's logs and spans.
func (r *Runner) RunID() string { return r.runID }

// Run processes every task of plan. A failed file never stops its siblings;
// failures are collected in the report.
func (r *Runner) Run(ctx context.Context, plan *Plan) *Report {
	start := time.Now()

	ctx = observability.WithRun(ctx, r.runID)

	ctx, span := r.tracer.Start(ctx, observability.SpanRun, trace.WithAttributes(
		attribute.String(observability.AttrRunID, r.runID),
		attribute.Int("pipeline.files", plan.Len()),
	))
	defer span.End()

	var tasks []Task
	for _, m := range plan.Modules {
		tasks = append(tasks, m.Tasks...)
	}

	r.logger.InfoContext(ctx, "run started", "modules", len(plan.Modules), "files", len(tasks), "workers", r.workers)

	results := make([]FileResult, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = r.process(ctx, task)

			return nil
		})
	}

	_ = g.Wait()

	report := assemble(r.runID, plan, results)
	report.Duration = time.Since(start)

	if err := report.Err(); err != nil {
		span.SetStatus(codes.Error, "files failed")
	}

	totals := report.Totals()
	span.SetAttributes(
		attribute.Int("bindings", totals.Bindings),
		attribute.Int("nodes", totals.Nodes),
		attribute.Int("pipeline.failed", report.FailedCount()),
	)

	r.logger.InfoContext(ctx, "run finished",
		"files", len(tasks), "failed", report.FailedCount(),
		"bindings", totals.Bindings, "duration", report.Duration)

	return report
}

func (r *Runner) process(ctx context.Context, task Task) FileResult {
	start := time.Now()

	ctx = observability.WithFile(ctx, task.File, task.Target)

	done := r.red.TrackInflight(ctx, observability.OpFile)
	defer done()

	ctx, span := r.tracer.Start(ctx, observability.SpanFile, trace.WithAttributes(
		attribute.String("file", task.File),
		attribute.String("target", task.Target),
	))
	defer span.End()

	res := FileResult{Module: task.Module, Target: task.Target, File: task.File}
	res.Err = r.bindFile(ctx, task, &res)
	res.Duration = time.Since(start)

	status := observability.StatusOK

	if res.Err != nil {
		status = observability.StatusError

		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "file failed")
		r.logger.ErrorContext(ctx, "file failed", "error", res.Err)
	} else {
		r.logger.DebugContext(ctx, "file bound",
			"nodes", res.Stats.Nodes, "bindings", res.Stats.Bindings, "duration", res.Duration)
	}

	r.red.RecordOperation(ctx, observability.OpFile, status, res.Duration)
	r.counts.RecordFile(ctx, task.Target, res.Stats)

	return res
}

func (r *Runner) bindFile(ctx context.Context, task Task, res *FileResult) error {
	args, err := task.Arguments()
	if err != nil {
		return err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tree, err := r.builder.Build(ctx, task.File, args, task.Inclusions)
	if err != nil {
		return err
	}

	res.Diagnostics = tree.Diagnostics
	res.Stats.Nodes = tree.Len()

	gen, err := r.generator.Generate(ctx, task.Module, tree)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", task.File, err)
	}

	res.Fragments = gen.Fragments
	res.Stats.Bindings = gen.Bindings
	res.Stats.Unsupported = gen.Skipped

	return nil
}
