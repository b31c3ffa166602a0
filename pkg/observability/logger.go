package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"

	// AttrRunID is the log and span attribute carrying the run identifier.
	AttrRunID = "run_id"
	// AttrFile is the translation unit a record belongs to.
	AttrFile = "file"
	// AttrTarget is the build target of that unit.
	AttrTarget = "target"
)

type logFieldsKey struct{}

// WithLogFields returns a context whose log records carry attrs. A key set
// again replaces the outer value, so a file context inside a run context
// keeps run_id and adds file and target.
func WithLogFields(ctx context.Context, attrs ...slog.Attr) context.Context {
	outer := LogFields(ctx)
	merged := make([]slog.Attr, 0, len(outer)+len(attrs))

	for _, a := range outer {
		if !slices.ContainsFunc(attrs, func(b slog.Attr) bool { return b.Key == a.Key }) {
			merged = append(merged, a)
		}
	}

	merged = append(merged, attrs...)

	return context.WithValue(ctx, logFieldsKey{}, merged)
}

// WithRun tags ctx with a run identifier.
func WithRun(ctx context.Context, runID string) context.Context {
	return WithLogFields(ctx, slog.String(AttrRunID, runID))
}

// WithFile tags ctx with the unit being processed and its target. An empty
// target is left out.
func WithFile(ctx context.Context, file, target string) context.Context {
	attrs := []slog.Attr{slog.String(AttrFile, file)}
	if target != "" {
		attrs = append(attrs, slog.String(AttrTarget, target))
	}

	return WithLogFields(ctx, attrs...)
}

// LogFields returns the attributes carried by ctx.
func LogFields(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(logFieldsKey{}).([]slog.Attr)

	return attrs
}

// TracingHandler is an [slog.Handler] that stamps each record with the
// run, file and target carried by the context, and with the active span's
// trace_id and span_id. Service attributes are attached once and stay at
// the top level under WithGroup.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. env is omitted when empty.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds the context fields and trace ids, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(LogFields(ctx)...)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler with attrs on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler with a group on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
