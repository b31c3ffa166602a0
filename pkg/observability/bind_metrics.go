package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNodesTotal       = "clangbind.nodes.total"
	metricBindingsTotal    = "clangbind.bindings.total"
	metricUnsupportedTotal = "clangbind.unsupported.total"

	attrTarget = "target"
)

// BindMetrics counts the work done per target.
type BindMetrics struct {
	nodes       metric.Int64Counter
	bindings    metric.Int64Counter
	unsupported metric.Int64Counter
}

// FileStats are the counts of one processed file.
type FileStats struct {
	Nodes       int
	Bindings    int
	Unsupported int
}

// NewBindMetrics creates the counters from the given meter.
func NewBindMetrics(mt metric.Meter) (*BindMetrics, error) {
	nodes, err := mt.Int64Counter(metricNodesTotal,
		metric.WithDescription("Cursors kept in built trees"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNodesTotal, err)
	}

	bindings, err := mt.Int64Counter(metricBindingsTotal,
		metric.WithDescription("Emitted binding statements"),
		metric.WithUnit("{binding}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBindingsTotal, err)
	}

	unsupported, err := mt.Int64Counter(metricUnsupportedTotal,
		metric.WithDescription("Declarations skipped as unsupported"),
		metric.WithUnit("{declaration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnsupportedTotal, err)
	}

	return &BindMetrics{nodes: nodes, bindings: bindings, unsupported: unsupported}, nil
}

// RecordFile adds the counts of one file of target.
func (bm *BindMetrics) RecordFile(ctx context.Context, target string, stats FileStats) {
	attrs := metric.WithAttributes(attribute.String(attrTarget, target))

	bm.nodes.Add(ctx, int64(stats.Nodes), attrs)
	bm.bindings.Add(ctx, int64(stats.Bindings), attrs)

	if stats.Unsupported > 0 {
		bm.unsupported.Add(ctx, int64(stats.Unsupported), attrs)
	}
}
