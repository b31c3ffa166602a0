// Package config loads clangbind settings from .clangbind.yaml, CLANGBIND_*
// environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend"
)

// Config is the top-level configuration struct for clangbind.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Module          string          `mapstructure:"module"`
	Dialect         string          `mapstructure:"dialect"`
	Frontend        string          `mapstructure:"frontend"`
	ProjectRoot     string          `mapstructure:"project_root"`
	BuildDir        string          `mapstructure:"build_dir"`
	CompileCommands string          `mapstructure:"compile_commands"`
	OutDir          string          `mapstructure:"out_dir"`
	Targets         []string        `mapstructure:"targets"`
	SelectFiles     []string        `mapstructure:"select_files"`
	IgnoreFiles     []string        `mapstructure:"ignore_files"`
	Clang           ClangConfig     `mapstructure:"clang"`
	Pipeline        PipelineConfig  `mapstructure:"pipeline"`
	Generate        GenerateConfig  `mapstructure:"generate"`
	Logging         LoggingConfig   `mapstructure:"logging"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry"`

	AllowInclusionsFromOtherTargets bool `mapstructure:"allow_inclusions_from_other_targets"`
}

// ClangConfig configures the clang JSON front-end.
type ClangConfig struct {
	Path      string   `mapstructure:"path"`
	ExtraArgs []string `mapstructure:"extra_args"`
}

// PipelineConfig holds the file task knobs.
type PipelineConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GenerateConfig holds binding generator settings.
type GenerateConfig struct {
	Unsupported string   `mapstructure:"unsupported"`
	Namespaces  string   `mapstructure:"namespaces"`
	Access      []string `mapstructure:"access"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds export settings.
type TelemetryConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidModule indicates a module name that is not a C++ identifier.
	ErrInvalidModule = errors.New("module must be a C++ identifier")
	// ErrInvalidDialect indicates a binding dialect other than py.
	ErrInvalidDialect = errors.New("dialect must be py")
	// ErrInvalidFrontend indicates an unregistered front-end name.
	ErrInvalidFrontend = errors.New("frontend is not registered")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("pipeline.workers must be non-negative")
	// ErrInvalidTimeout indicates the timeout is negative.
	ErrInvalidTimeout = errors.New("pipeline.timeout must be non-negative")
	// ErrInvalidGenerate indicates an unknown generator policy.
	ErrInvalidGenerate = errors.New("invalid generate setting")
	// ErrInvalidAccess indicates an unknown access level name.
	ErrInvalidAccess = errors.New("generate.access entries must be public, protected or private")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidPattern indicates a malformed select or ignore glob.
	ErrInvalidPattern = errors.New("invalid file pattern")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Module != "" && !identRe.MatchString(c.Module) {
		return fmt.Errorf("%w: %q", ErrInvalidModule, c.Module)
	}

	if c.Dialect != DefaultDialect {
		return fmt.Errorf("%w: %q", ErrInvalidDialect, c.Dialect)
	}

	if c.Frontend != "" && !slices.Contains(frontend.Names(), c.Frontend) {
		return fmt.Errorf("%w: %q", ErrInvalidFrontend, c.Frontend)
	}

	if err := c.validatePipeline(); err != nil {
		return err
	}

	if err := c.validateGenerate(); err != nil {
		return err
	}

	for _, p := range slices.Concat(c.SelectFiles, c.IgnoreFiles) {
		if !validPattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	if _, ok := parseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.Timeout < 0 {
		return ErrInvalidTimeout
	}

	return nil
}

func (c *Config) validateGenerate() error {
	if _, err := bind.ParseUnsupportedPolicy(c.Generate.Unsupported); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGenerate, err)
	}

	if _, err := bind.ParseNamespacePolicy(c.Generate.Namespaces); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGenerate, err)
	}

	if _, err := c.AccessLevels(); err != nil {
		return err
	}

	return nil
}

// AccessLevels converts generate.access to access values.
func (c *Config) AccessLevels() ([]ast.Access, error) {
	if len(c.Generate.Access) == 0 {
		return nil, nil
	}

	out := make([]ast.Access, 0, len(c.Generate.Access))

	for _, name := range c.Generate.Access {
		acc, ok := ast.ParseAccess(name)
		if !ok || acc == ast.AccessNone {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAccess, name)
		}

		out = append(out, acc)
	}

	return out, nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Logging.Level)

	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// validPattern reports whether p is a well-formed glob.
func validPattern(p string) bool {
	_, err := path.Match(p, "")

	return err == nil
}
