// Package clangjson is a C++ front-end that runs clang with
// -ast-dump=json and decodes the dump into ast cursors.
package clangjson

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// Name is the front-end name used in configuration.
const Name = "clang"

// DefaultPath is the clang driver used when Options.Path is empty.
const DefaultPath = "clang++"

var (
	errNoOutput      = errors.New("clang produced no AST")
	errSessionClosed = errors.New("session closed")
)

// Runner executes the compiler and returns its standard output and error.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err
}

// Options configures the clang front-end.
type Options struct {
	// Run executes clang. Nil means ExecRunner.
	Run Runner

	// Path is the clang driver. Empty means DefaultPath.
	Path string

	// ExtraArgs are placed before the per-file arguments.
	ExtraArgs []string
}

// Frontend creates clang sessions.
type Frontend struct {
	opts Options
}

var _ ast.Frontend = (*Frontend)(nil)

// New creates a Frontend.
func New(opts Options) *Frontend {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}

	if opts.Run == nil {
		opts.Run = ExecRunner
	}

	return &Frontend{opts: opts}
}

// Name implements ast.Frontend.
func (f *Frontend) Name() string { return Name }

// NewSession implements ast.Frontend.
func (f *Frontend) NewSession() (ast.Session, error) {
	return &Session{opts: f.opts}, nil
}

// Session runs one clang process per Parse call.
type Session struct {
	opts   Options
	closed bool
}

// Close implements ast.Session.
func (s *Session) Close() error {
	s.closed = true

	return nil
}

// Args builds the clang command line for file.
func (s *Session) Args(file string, args []string) []string {
	out := make([]string, 0, len(s.opts.ExtraArgs)+len(args)+4) //nolint:mnd // fixed dump flags plus file.
	out = append(out, "-fsyntax-only", "-Xclang", "-ast-dump=json")
	out = append(out, s.opts.ExtraArgs...)
	out = append(out, args...)

	return append(out, file)
}

// Parse implements ast.Session.
func (s *Session) Parse(ctx context.Context, file string, args []string, opts ast.ParseOptions) (*ast.TranslationUnit, error) {
	if s.closed {
		return nil, errSessionClosed
	}

	stdout, stderr, runErr := s.opts.Run(ctx, s.opts.Path, s.Args(file, args)...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	diags := parseDiagnostics(stderr)

	if len(bytes.TrimSpace(stdout)) == 0 {
		msg := strings.TrimSpace(string(stderr))
		if runErr != nil {
			return nil, fmt.Errorf("%w: %w: %s", errNoOutput, runErr, msg)
		}

		return nil, fmt.Errorf("%w: %s", errNoOutput, msg)
	}

	var root jsonNode
	if err := json.Unmarshal(stdout, &root); err != nil {
		return nil, fmt.Errorf("decode clang AST: %w", err)
	}

	d := newDecoder(file)

	tu := d.translationUnit(&root)
	if opts.DetailedPreprocessing {
		tu.Kids = mergeDirectives(tu.Kids, scanDirectives(d.files(tu)))
	}

	return &ast.TranslationUnit{Cursor: tu, Spelling: file, Diagnostics: diags}, nil
}
