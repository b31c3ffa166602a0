package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
)

// textfileSink collects OTel instruments into a private Prometheus registry
// and writes it in the node_exporter textfile format.
type textfileSink struct {
	registry *prometheus.Registry
	reader   *promexporter.Exporter
	path     string
}

func newTextfileSink(path string) (*textfileSink, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &textfileSink{registry: registry, reader: exporter, path: path}, nil
}

// write replaces the textfile atomically.
func (s *textfileSink) write() error {
	if err := prometheus.WriteToTextfile(s.path, s.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
