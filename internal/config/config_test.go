package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

func validConfig() config.Config {
	return config.Config{
		Module:   "geo",
		Dialect:  config.DefaultDialect,
		Frontend: config.DefaultFrontend,
		Pipeline: config.PipelineConfig{
			Workers: 4,
			Timeout: time.Minute,
		},
		Generate: config.GenerateConfig{
			Unsupported: "skip",
			Namespaces:  "flatten",
			Access:      []string{"public"},
		},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate func(*config.Config)
		want   error
		name   string
	}{
		{func(c *config.Config) { c.Module = "my-module" }, config.ErrInvalidModule, "module"},
		{func(c *config.Config) { c.Dialect = "lua" }, config.ErrInvalidDialect, "dialect"},
		{func(c *config.Config) { c.Frontend = "gcc" }, config.ErrInvalidFrontend, "frontend"},
		{func(c *config.Config) { c.Pipeline.Workers = -1 }, config.ErrInvalidWorkers, "workers"},
		{func(c *config.Config) { c.Pipeline.Timeout = -time.Second }, config.ErrInvalidTimeout, "timeout"},
		{func(c *config.Config) { c.Generate.Unsupported = "ignore" }, config.ErrInvalidGenerate, "unsupported"},
		{func(c *config.Config) { c.Generate.Namespaces = "nested" }, config.ErrInvalidGenerate, "namespaces"},
		{func(c *config.Config) { c.Generate.Access = []string{"friend"} }, config.ErrInvalidAccess, "access"},
		{func(c *config.Config) { c.Generate.Access = []string{"none"} }, config.ErrInvalidAccess, "access none"},
		{func(c *config.Config) { c.SelectFiles = []string{"src/[a"} }, config.ErrInvalidPattern, "select"},
		{func(c *config.Config) { c.IgnoreFiles = []string{"[!"} }, config.ErrInvalidPattern, "ignore"},
		{func(c *config.Config) { c.Logging.Level = "trace" }, config.ErrInvalidLogLevel, "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestAccessLevels(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Generate.Access = []string{"public", "Protected"}

	levels, err := cfg.AccessLevels()
	require.NoError(t, err)
	assert.Equal(t, []ast.Access{ast.AccessPublic, ast.AccessProtected}, levels)

	cfg.Generate.Access = nil

	levels, err = cfg.AccessLevels()
	require.NoError(t, err)
	assert.Nil(t, levels)
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	for level, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		cfg := config.Config{Logging: config.LoggingConfig{Level: level}}
		assert.Equal(t, want, cfg.LogLevel(), level)
	}
}
