package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kballard/go-shellquote"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clangbind/internal/config"
	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/bind"
	"github.com/Sumatoshi-tech/clangbind/pkg/compdb"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend"
	"github.com/Sumatoshi-tech/clangbind/pkg/pipeline"
)

// ErrNoInput is returned when a command has neither files nor a build graph.
var ErrNoInput = errors.New("nothing to bind: pass source files, --build-dir, or --compile-commands")

func newFrontend(cfg *config.Config, tokens bool) (ast.Frontend, error) {
	return frontend.New(cfg.Frontend, frontend.Options{
		ClangPath:      cfg.Clang.Path,
		ClangExtraArgs: cfg.Clang.ExtraArgs,
		Tokens:         tokens,
	})
}

func newGenerator(cfg *config.Config, logger *slog.Logger, tracer trace.Tracer) (*bind.Generator, error) {
	access, err := cfg.AccessLevels()
	if err != nil {
		return nil, err
	}

	namespaces, err := bind.ParseNamespacePolicy(cfg.Generate.Namespaces)
	if err != nil {
		return nil, err
	}

	unsupported, err := bind.ParseUnsupportedPolicy(cfg.Generate.Unsupported)
	if err != nil {
		return nil, err
	}

	return bind.New(bind.Options{
		Logger:      logger,
		Tracer:      tracer,
		Namespaces:  namespaces,
		Unsupported: unsupported,
		Access:      access,
	}), nil
}

// argsSource picks where compile arguments come from: the compilation
// database when configured, else the --args string for every file. A nil
// source with a nil error lets CMake targets use their compile groups.
func argsSource(cfg *config.Config, argLine string) (pipeline.ArgsSource, *compdb.Database, error) {
	if cfg.CompileCommands != "" {
		db, err := compdb.Load(cfg.CompileCommands)
		if err != nil {
			return nil, nil, err
		}

		return db, db, nil
	}

	if argLine == "" {
		return nil, nil, nil
	}

	args, err := shellquote.Split(argLine)
	if err != nil {
		return nil, nil, fmt.Errorf("split --args: %w", err)
	}

	return pipeline.StaticArgs(args), nil, nil
}
