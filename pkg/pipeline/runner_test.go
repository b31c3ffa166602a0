package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/treesitter"
	"github.com/Sumatoshi-tech/clangbind/pkg/observability"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
	"github.com/Sumatoshi-tech/clangbind/pkg/pipeline"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(src), 0o600))

	return p
}

func newRunner(t *testing.T, opts pipeline.Options) *pipeline.Runner {
	t.Helper()

	if opts.Frontend == nil {
		opts.Frontend = treesitter.New(treesitter.Options{})
	}

	r, err := pipeline.New(opts)
	require.NoError(t, err)

	return r
}

func TestNew_RequiresFrontend(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(pipeline.Options{})
	require.ErrorIs(t, err, pipeline.ErrNoFrontend)
}

func TestNew_GeneratesRunID(t *testing.T) {
	t.Parallel()

	a := newRunner(t, pipeline.Options{})
	b := newRunner(t, pipeline.Options{})

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.Equal(t, "fixed", newRunner(t, pipeline.Options{RunID: "fixed"}).RunID())
}

func TestRun_SharedHeaderBoundOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := writeFile(t, dir, "shared.h", "void Shared();\n")
	a := writeFile(t, dir, "a.cpp", "#include \"shared.h\"\nvoid F(int a);\n")
	b := writeFile(t, dir, "b.cpp", "#include \"shared.h\"\nvoid G();\n")

	plan, err := pipeline.PlanFiles([]string{a, b}, []string{h}, nil, pipeline.PlanOptions{Module: "geo", ProjectRoot: dir})
	require.NoError(t, err)

	report := newRunner(t, pipeline.Options{Workers: 2}).Run(context.Background(), plan)
	require.NoError(t, report.Err())

	require.Len(t, report.Modules, 1)

	mod := report.Modules[0]
	assert.Equal(t, []string{
		`m.def("Shared", &Shared);`,
		`m.def("F", &F, "a"_a);`,
		`m.def("G", &G);`,
	}, mod.Fragments)

	src := mod.Source()
	assert.Equal(t, 1, strings.Count(src, `"Shared"`))
	assert.Contains(t, src, "#include <shared.h>")
	assert.Contains(t, src, "PYBIND11_MODULE(geo, m) {")

	totals := report.Totals()
	assert.Equal(t, 4, totals.Bindings)
	assert.Positive(t, totals.Nodes)
	assert.Zero(t, report.FailedCount())
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var files []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files = append(files, writeFile(t, dir, name+".cpp", "void "+strings.ToUpper(name)+"();\n"))
	}

	plan, err := pipeline.PlanFiles(files, nil, nil, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	first := newRunner(t, pipeline.Options{Workers: 4}).Run(context.Background(), plan)
	second := newRunner(t, pipeline.Options{Workers: 1}).Run(context.Background(), plan)

	require.NoError(t, first.Err())
	assert.Equal(t, first.Modules[0].Source(), second.Modules[0].Source())
	assert.Equal(t, `m.def("A", &A);`, first.Modules[0].Fragments[0])
}

func TestRun_LogsCarryRunAndFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "a.cpp", "void F();\n")

	plan, err := pipeline.PlanFiles([]string{file}, nil, nil, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "clangbind", "", observability.ModeCLI))

	report := newRunner(t, pipeline.Options{Logger: logger, RunID: "run-logs"}).Run(context.Background(), plan)
	require.NoError(t, report.Err())

	var bound string

	for line := range strings.SplitSeq(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"file bound"`) {
			bound = line
		}

		if line != "" {
			assert.Contains(t, line, `"run_id":"run-logs"`)
		}
	}

	require.NotEmpty(t, bound)
	assert.Contains(t, bound, `"file":"`+file+`"`)
}

func TestRun_FailedFileKeepsSiblings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.cpp", "void Good();\n")
	missing := filepath.Join(dir, "missing.cpp")

	plan, err := pipeline.PlanFiles([]string{missing, good}, nil, nil, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	report := newRunner(t, pipeline.Options{}).Run(context.Background(), plan)

	require.ErrorIs(t, report.Err(), parse.ErrParse)
	assert.Equal(t, 1, report.FailedCount())

	mod := report.Modules[0]
	assert.True(t, mod.Failed())
	require.Len(t, mod.Files, 2)
	require.Error(t, mod.Files[0].Err)
	require.NoError(t, mod.Files[1].Err)
	assert.Equal(t, []string{`m.def("Good", &Good);`}, mod.Fragments)
}

func TestRun_ArgumentsErrorRaisedBeforeParse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "a.cpp", "void F();\n")

	plan, err := pipeline.PlanFiles([]string{file}, nil, failingArgs{}, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	report := newRunner(t, pipeline.Options{}).Run(context.Background(), plan)

	require.ErrorIs(t, report.Err(), errNoArgs)
	assert.Zero(t, report.Modules[0].Files[0].Stats.Nodes)
}

type blockingFrontend struct{}

func (blockingFrontend) Name() string { return "blocking" }

func (blockingFrontend) NewSession() (ast.Session, error) { return blockingSession{}, nil }

type blockingSession struct{}

func (blockingSession) Parse(ctx context.Context, _ string, _ []string, _ ast.ParseOptions) (*ast.TranslationUnit, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

func (blockingSession) Close() error { return nil }

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	plan, err := pipeline.PlanFiles([]string{"/src/a.cpp", "/src/b.cpp"}, nil, nil, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	report := newRunner(t, pipeline.Options{
		Frontend: blockingFrontend{},
		Timeout:  10 * time.Millisecond,
	}).Run(context.Background(), plan)

	require.ErrorIs(t, report.Err(), context.DeadlineExceeded)
	require.ErrorIs(t, report.Err(), parse.ErrParse)
	assert.Equal(t, 2, report.FailedCount())
}

func TestRun_Telemetry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "a.cpp", "struct P { int x; };\n")

	plan, err := pipeline.PlanFiles([]string{file}, nil, nil, pipeline.PlanOptions{Module: "m"})
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	spans := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(spans))

	report := newRunner(t, pipeline.Options{
		Meter:  mp.Meter("test"),
		Tracer: tp.Tracer("test"),
		RunID:  "run-1",
	}).Run(context.Background(), plan)
	require.NoError(t, report.Err())

	counts := map[string]int{}
	for _, s := range spans.Ended() {
		counts[s.Name()]++
	}

	assert.Equal(t, map[string]int{
		observability.SpanRun:      1,
		observability.SpanFile:     1,
		observability.SpanParse:    1,
		observability.SpanGenerate: 1,
	}, counts)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}

	assert.True(t, found["clangbind.operations.total"])
	assert.True(t, found["clangbind.bindings.total"])
	assert.True(t, found["clangbind.nodes.total"])
}
