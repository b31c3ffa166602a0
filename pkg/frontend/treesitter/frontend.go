// Package treesitter is an in-process C++ front-end built on the tree-sitter
// C++ grammar. It maps grammar nodes onto clang-style cursor kinds, evaluates
// preprocessor conditionals and expands project headers so the resulting
// translation unit resembles what a compiler would report.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/cpp"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// Name is the front-end name used in configuration.
const Name = "treesitter"

var (
	errSessionClosed = errors.New("session closed")
	errNoRootNode    = errors.New("no root node")
)

// Options tunes the front-end.
type Options struct {
	// Tokens attaches source tokens to every cursor.
	Tokens bool

	// MaxIncludeDepth bounds nested header expansion. Zero means 64.
	MaxIncludeDepth int
}

const defaultMaxIncludeDepth = 64

// Frontend creates tree-sitter sessions.
type Frontend struct {
	lang *sitter.Language
	opts Options
}

var _ ast.Frontend = (*Frontend)(nil)

// New creates a Frontend.
func New(opts Options) *Frontend {
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = defaultMaxIncludeDepth
	}

	return &Frontend{
		lang: sitter.NewLanguage(cpp.GetLanguage()),
		opts: opts,
	}
}

// Name implements ast.Frontend.
func (f *Frontend) Name() string { return Name }

// NewSession implements ast.Frontend. Each session owns its parser.
func (f *Frontend) NewSession() (ast.Session, error) {
	p := sitter.NewParser()
	p.SetLanguage(f.lang)

	return &Session{parser: p, opts: f.opts}, nil
}

// Session parses translation units one at a time.
type Session struct {
	parser *sitter.Parser
	opts   Options
}

// Close releases the parser. The session cannot be used afterwards.
func (s *Session) Close() error {
	s.parser = nil

	return nil
}

// Parse implements ast.Session.
func (s *Session) Parse(ctx context.Context, file string, args []string, opts ast.ParseOptions) (*ast.TranslationUnit, error) {
	if s.parser == nil {
		return nil, errSessionClosed
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	cwd, err := filepath.Abs(filepath.Dir(file))
	if err != nil {
		cwd = filepath.Dir(file)
	}

	conv := &converter{
		ctx:       ctx,
		session:   s,
		flags:     parseFlags(args, cwd),
		detailed:  opts.DetailedPreprocessing,
		tokens:    s.opts.Tokens,
		maxDepth:  s.opts.MaxIncludeDepth,
		records:   make(map[string]string),
		expanded:  make(map[string]struct{}),
		templates: make(map[string]struct{}),
	}
	conv.macros = conv.flags.macroTable()

	root, err := conv.translationUnit(file, src)
	if err != nil {
		return nil, err
	}

	return &ast.TranslationUnit{
		Cursor:      root,
		Spelling:    file,
		Diagnostics: conv.diags,
	}, nil
}

// parseSource runs the grammar over src. The caller must close the tree.
func (s *Session) parseSource(ctx context.Context, src []byte) (*sitter.Tree, sitter.Node, error) {
	tree, err := s.parser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, sitter.Node{}, fmt.Errorf("tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.IsNull() {
		tree.Close()

		return nil, sitter.Node{}, errNoRootNode
	}

	return tree, root, nil
}
