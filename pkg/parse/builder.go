package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/features"
)

const tracerName = "clangbind/parse"

// ErrParse is returned when the front-end cannot produce a translation unit.
var ErrParse = errors.New("parse failed")

// Membership decides which files' cursors belong in a tree.
type Membership struct {
	files map[string]struct{}
}

// NewMembership accepts the root file plus the given inclusion sources.
func NewMembership(root string, inclusionSources []string) Membership {
	m := Membership{files: make(map[string]struct{}, len(inclusionSources)+1)}
	m.files[canonicalPath(root)] = struct{}{}

	for _, src := range inclusionSources {
		m.files[canonicalPath(src)] = struct{}{}
	}

	return m
}

// Contains reports whether file is a member.
func (m Membership) Contains(file string) bool {
	_, ok := m.files[canonicalPath(file)]

	return ok
}

func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}

	return abs
}

// Builder turns a file into an enriched Tree through a Frontend.
type Builder struct {
	frontend  ast.Frontend
	reflector *features.Reflector
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for parse diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithTracer sets the tracer for parse.build spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) {
		b.tracer = t
	}
}

// WithReflector replaces the default reflector.
func WithReflector(r *features.Reflector) Option {
	return func(b *Builder) {
		b.reflector = r
	}
}

// NewBuilder creates a Builder over fe.
func NewBuilder(fe ast.Frontend, opts ...Option) *Builder {
	b := &Builder{
		frontend:  fe,
		reflector: features.NewReflector(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build parses file with args and returns its tree. Only cursors declared in
// file or in one of inclusionSources are kept. Error-level diagnostics do not
// stop the build; the partial tree carries them in Tree.Diagnostics.
func (b *Builder) Build(ctx context.Context, file string, args, inclusionSources []string) (*Tree, error) {
	ctx, span := b.tracer.Start(ctx, "parse.build")
	defer span.End()

	span.SetAttributes(attribute.String("file", file), attribute.Int("args", len(args)))

	tree, err := b.build(ctx, file, args, inclusionSources)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")

		return nil, err
	}

	span.SetAttributes(attribute.Int("nodes", tree.Len()))

	return tree, nil
}

func (b *Builder) build(ctx context.Context, file string, args, inclusionSources []string) (*Tree, error) {
	session, err := b.frontend.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open %s session: %w", ErrParse, file, b.frontend.Name(), err)
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			b.logger.WarnContext(ctx, "close front-end session", "file", file, "error", closeErr)
		}
	}()

	tu, err := session.Parse(ctx, file, args, ast.ParseOptions{DetailedPreprocessing: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, file, err)
	}

	if tu == nil || tu.Cursor == nil {
		return nil, fmt.Errorf("%w: %s: front-end returned no translation unit", ErrParse, file)
	}

	if fatal := tu.Diagnostics.AtLeast(ast.SeverityFatal); len(fatal) > 0 {
		return nil, fmt.Errorf("%w: %s:\n%s", ErrParse, file, fatal)
	}

	for _, d := range tu.Diagnostics.AtLeast(ast.SeverityError) {
		b.logger.DebugContext(ctx, "front-end diagnostic", "file", file, "diagnostic", d.String())
	}

	tree := newTree(file)
	tree.Diagnostics = tu.Diagnostics
	tree.Index = newIndex(tree)

	members := NewMembership(file, inclusionSources)

	rootID := tree.add(NodeID{}, tu.Cursor, b.reflector.Node(tu.Cursor, 0))
	tree.Index.register(rootID)

	err = b.attach(ctx, tree, members, rootID, tu.Cursor, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, file, err)
	}

	return tree, nil
}

// attach walks the children of c in front-end order, attaching members.
func (b *Builder) attach(ctx context.Context, tree *Tree, members Membership, parent NodeID, c ast.Cursor, depth int) error {
	for _, kid := range c.Children() {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Cursors without a file, such as builtin macros, are never members.
		if f := kid.Location().File; f == "" || !members.Contains(f) {
			continue
		}

		id := tree.add(parent, kid, b.reflector.Node(kid, depth))
		tree.Index.register(id)

		if err := b.attach(ctx, tree, members, id, kid, depth+1); err != nil {
			return err
		}
	}

	return nil
}
