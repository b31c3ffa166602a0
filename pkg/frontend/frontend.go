// Package frontend selects a C++ front-end by name.
package frontend

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/clangjson"
	"github.com/Sumatoshi-tech/clangbind/pkg/frontend/treesitter"
)

// ErrUnknownFrontend is returned for names that are not registered.
var ErrUnknownFrontend = errors.New("unknown front-end")

// Default is the front-end used when none is configured.
const Default = treesitter.Name

// Options carries the settings of every front-end; each uses its own part.
type Options struct {
	ClangPath      string
	ClangExtraArgs []string
	// Tokens attaches source tokens to tree-sitter cursors.
	Tokens bool
}

// Names lists the registered front-ends in sorted order.
func Names() []string {
	names := []string{treesitter.Name, clangjson.Name}
	slices.Sort(names)

	return names
}

// New returns the front-end registered under name.
func New(name string, opts Options) (ast.Frontend, error) {
	switch name {
	case "", treesitter.Name:
		return treesitter.New(treesitter.Options{Tokens: opts.Tokens}), nil
	case clangjson.Name:
		return clangjson.New(clangjson.Options{Path: opts.ClangPath, ExtraArgs: opts.ClangExtraArgs}), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownFrontend, name, Names())
	}
}
