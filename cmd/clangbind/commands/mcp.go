package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/mcp"
	"github.com/Sumatoshi-tech/clangbind/pkg/observability"
	"github.com/Sumatoshi-tech/clangbind/pkg/version"
)

func newMCPCommand(g *globalFlags) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes clangbind as tools that AI agents can discover and invoke:
  - clangbind_parse: Parse C++ code into the enriched AST
  - clangbind_generate: Generate a pybind11 module for C++ code`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd, flagBinding{"frontend", "frontend"})
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cfg, debug)
			if err != nil {
				return err
			}
			defer shutdown(providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			fe, err := newFrontend(cfg, false)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:   providers.Logger,
				Metrics:  red,
				Tracer:   providers.Tracer,
				Frontend: fe,
				Version:  version.Version,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().String("frontend", "", "C++ front-end: treesitter or clang")

	return cmd
}

func initMCPObservability(cfg *config.Config, debug bool) (observability.Providers, error) {
	oc := observability.DefaultConfig()
	oc.ServiceVersion = version.Version
	oc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	oc.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	oc.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	oc.Mode = observability.ModeMCP
	oc.LogJSON = true
	oc.LogLevel = cfg.LogLevel()

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" && oc.OTLPEndpoint == "" {
		oc.OTLPEndpoint = endpoint
		oc.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}

	if debug {
		oc.LogLevel = slog.LevelDebug
		oc.DebugTrace = true
	}

	return observability.Init(oc)
}
