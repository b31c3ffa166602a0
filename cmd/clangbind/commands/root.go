// Package commands implements CLI command handlers for clangbind.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/observability"
	"github.com/Sumatoshi-tech/clangbind/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool
	noColor    bool
}

// NewRootCommand builds the clangbind command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "clangbind",
		Short: "Generate pybind11 bindings from C++ sources",
		Long: `clangbind walks the AST of C++ translation units and emits pybind11
binding modules.

Commands:
  generate     Write binding modules for CMake targets or source files
  parse        Dump the enriched AST of one file
  inspect      Show the feature table of one file
  targets      List CMake targets of a build directory
  cmake-query  Request the CMake File API codemodel
  mcp          Serve parse and generate as MCP tools`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if g.noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "config file (default .clangbind.yaml in . or $HOME)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "only log errors")
	flags.BoolVar(&g.logJSON, "log-json", false, "log as JSON")
	flags.BoolVar(&g.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newGenerateCommand(g),
		newParseCommand(g),
		newInspectCommand(g),
		newTargetsCommand(g),
		newCMakeQueryCommand(),
		newMCPCommand(g),
		newVersionCommand(),
	)

	return rootCmd
}

// flagBinding ties a command flag to a config key.
type flagBinding struct {
	flag string
	key  string
}

// load reads the config with the command's changed flags layered on top.
func (g *globalFlags) load(cmd *cobra.Command, bindings ...flagBinding) (*config.Config, error) {
	v := config.New(g.configPath)

	if err := bindFlags(cmd, v, bindings); err != nil {
		return nil, err
	}

	if g.logJSON {
		v.Set("logging.json", true)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper, bindings []flagBinding) error {
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}

	return nil
}

// logLevel resolves the level from the config and the verbosity flags.
func (g *globalFlags) logLevel(cfg *config.Config) slog.Level {
	switch {
	case g.verbose:
		return slog.LevelDebug
	case g.quiet:
		return slog.LevelError
	default:
		return cfg.LogLevel()
	}
}

// telemetry initializes logging, tracing, and metrics for a CLI run.
func (g *globalFlags) telemetry(cfg *config.Config, logOut io.Writer) (observability.Providers, error) {
	oc := observability.DefaultConfig()
	oc.ServiceVersion = version.Version
	oc.Mode = observability.ModeCLI
	oc.LogLevel = g.logLevel(cfg)
	oc.LogJSON = cfg.Logging.JSON
	oc.LogOutput = logOut
	oc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	oc.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	oc.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	oc.DebugTrace = g.verbose

	return observability.Init(oc)
}

func shutdown(providers observability.Providers) {
	if err := providers.Shutdown(context.Background()); err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
