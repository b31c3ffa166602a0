// Package bind generates pybind11 binding source from enriched AST trees.
package bind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/parse"
)

const tracerName = "clangbind/bind"

// Sentinel errors.
var (
	// ErrUnsupportedKind is returned under UnsupportedFail when a
	// declaration has no binding rule.
	ErrUnsupportedKind = errors.New("unsupported declaration kind")
	ErrUnknownPolicy   = errors.New("unknown policy")
)

// NamespacePolicy controls how C++ namespaces map onto Python modules.
type NamespacePolicy string

// Namespace policies.
const (
	// NamespacesFlatten registers everything on the top-level module.
	NamespacesFlatten NamespacePolicy = "flatten"
	// NamespacesSubmodule creates one submodule per named namespace.
	NamespacesSubmodule NamespacePolicy = "submodule"
)

// UnsupportedPolicy controls what happens to declarations classified
// CategoryUnsupported.
type UnsupportedPolicy string

// Unsupported-kind policies.
const (
	UnsupportedSkip UnsupportedPolicy = "skip"
	UnsupportedFail UnsupportedPolicy = "fail"
)

// ParseNamespacePolicy validates a namespace policy name.
func ParseNamespacePolicy(s string) (NamespacePolicy, error) {
	switch p := NamespacePolicy(s); p {
	case NamespacesFlatten, NamespacesSubmodule:
		return p, nil
	case "":
		return NamespacesFlatten, nil
	default:
		return "", fmt.Errorf("%w: namespaces %q", ErrUnknownPolicy, s)
	}
}

// ParseUnsupportedPolicy validates an unsupported-kind policy name.
func ParseUnsupportedPolicy(s string) (UnsupportedPolicy, error) {
	switch p := UnsupportedPolicy(s); p {
	case UnsupportedSkip, UnsupportedFail:
		return p, nil
	case "":
		return UnsupportedSkip, nil
	default:
		return "", fmt.Errorf("%w: unsupported %q", ErrUnknownPolicy, s)
	}
}

// DefaultAccess binds every member regardless of its access specifier.
var DefaultAccess = []ast.Access{ast.AccessPublic, ast.AccessProtected, ast.AccessPrivate}

// Options configures a Generator.
type Options struct {
	Logger *slog.Logger
	// Tracer records bind.generate spans. Nil uses the global provider.
	Tracer      trace.Tracer
	Namespaces  NamespacePolicy
	Unsupported UnsupportedPolicy
	// Access lists the member access levels to bind. Empty means
	// DefaultAccess.
	Access []ast.Access
}

// Generator turns trees into binding fragments.
type Generator struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	namespaces  NamespacePolicy
	unsupported UnsupportedPolicy
	access      []ast.Access
}

// New creates a Generator.
func New(opts Options) *Generator {
	g := &Generator{
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		namespaces:  opts.Namespaces,
		unsupported: opts.Unsupported,
		access:      opts.Access,
	}

	if g.logger == nil {
		g.logger = slog.Default()
	}

	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}

	if g.namespaces == "" {
		g.namespaces = NamespacesFlatten
	}

	if g.unsupported == "" {
		g.unsupported = UnsupportedSkip
	}

	if len(g.access) == 0 {
		g.access = DefaultAccess
	}

	return g
}

// Result is the outcome of generating one tree.
type Result struct {
	Decls     []Decl
	Fragments []string
	// Skipped counts unsupported declarations dropped under UnsupportedSkip.
	Skipped int
	// Bindings counts emitted binding statements.
	Bindings int
}

// Generate binds tree with default options.
func Generate(moduleName string, tree *parse.Tree) ([]string, error) {
	res, err := New(Options{}).Generate(context.Background(), moduleName, tree)
	if err != nil {
		return nil, err
	}

	return res.Fragments, nil
}

// Generate collects the declarations of tree and emits them in source order.
func (g *Generator) Generate(ctx context.Context, moduleName string, tree *parse.Tree) (*Result, error) {
	ctx, span := g.tracer.Start(ctx, "bind.generate")
	defer span.End()

	span.SetAttributes(attribute.String("module", moduleName), attribute.String("file", tree.File))

	decls, skipped, err := g.Collect(ctx, tree)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect failed")

		return nil, err
	}

	fragments, bindings := Emit(decls)

	span.SetAttributes(
		attribute.Int("fragments", len(fragments)),
		attribute.Int("bindings", bindings),
		attribute.Int("skipped", skipped),
	)

	return &Result{Decls: decls, Fragments: fragments, Skipped: skipped, Bindings: bindings}, nil
}

func (g *Generator) allows(acc ast.Access) bool {
	switch acc {
	case ast.AccessInvalid, ast.AccessNone:
		return true
	default:
		return slices.Contains(g.access, acc)
	}
}
