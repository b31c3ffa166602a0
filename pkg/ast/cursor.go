package ast

import (
	"fmt"
	"strings"
)

// Access is a C++ access specifier.
type Access uint8

// Access specifiers.
const (
	AccessInvalid Access = iota
	AccessPublic
	AccessProtected
	AccessPrivate
	AccessNone
)

var accessNames = [...]string{
	AccessInvalid:   "INVALID",
	AccessPublic:    "PUBLIC",
	AccessProtected: "PROTECTED",
	AccessPrivate:   "PRIVATE",
	AccessNone:      "NONE",
}

// String returns the bare enumerant name, e.g. "PUBLIC".
func (a Access) String() string {
	if int(a) >= len(accessNames) {
		return accessNames[AccessInvalid]
	}

	return accessNames[a]
}

// ParseAccess resolves "public", "PUBLIC", "protected" and so on.
func ParseAccess(s string) (Access, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return AccessPublic, true
	case "protected":
		return AccessProtected, true
	case "private":
		return AccessPrivate, true
	case "none":
		return AccessNone, true
	default:
		return AccessInvalid, false
	}
}

// Traits is a bitset of boolean facts a front-end knows about a cursor.
type Traits uint32

// Cursor traits.
const (
	TraitAnonymous Traits = 1 << iota
	TraitDefinition
	TraitDeleted
	TraitDefaulted
	TraitConst
	TraitStatic
	TraitVirtual
	TraitPureVirtual
	TraitExplicit
	TraitScoped
	TraitVariadic
	TraitImplicit
	TraitInline
	TraitExtern
	TraitMutable
	TraitBitField
	TraitHasDefault
	TraitOverride
	TraitFinal
)

// Has reports whether every bit of mask is set.
func (t Traits) Has(mask Traits) bool {
	return t&mask == mask
}

// Location is a source position. Line and Column are 1-based.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String renders the location as file:line:column.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Cursor is a read-only view of one front-end AST node.
type Cursor interface {
	Kind() Kind
	Spelling() string
	Location() Location
	Type() Type
	ResultType() Type
	Access() Access
	Traits() Traits
	Children() []Cursor
}

// Attributer is implemented by cursors that carry additional front-end
// specific attributes beyond the fixed facets.
type Attributer interface {
	Attributes() map[string]any
}

// Tokenizer is implemented by cursors that can report their source tokens.
type Tokenizer interface {
	Tokens() []string
}

// Node is the materialized Cursor both bundled front-ends produce.
type Node struct {
	Attrs  map[string]any
	Name   string
	Loc    Location
	Typ    Type
	Result Type
	Toks   []string
	Kids   []*Node
	K      Kind
	Acc    Access
	Flags  Traits
}

var (
	_ Cursor     = (*Node)(nil)
	_ Attributer = (*Node)(nil)
	_ Tokenizer  = (*Node)(nil)
)

// Kind implements Cursor.
func (n *Node) Kind() Kind { return n.K }

// Spelling implements Cursor.
func (n *Node) Spelling() string { return n.Name }

// Location implements Cursor.
func (n *Node) Location() Location { return n.Loc }

// Type implements Cursor.
func (n *Node) Type() Type { return n.Typ }

// ResultType implements Cursor.
func (n *Node) ResultType() Type { return n.Result }

// Access implements Cursor.
func (n *Node) Access() Access { return n.Acc }

// Traits implements Cursor.
func (n *Node) Traits() Traits { return n.Flags }

// Children implements Cursor.
func (n *Node) Children() []Cursor {
	out := make([]Cursor, len(n.Kids))
	for i, kid := range n.Kids {
		out[i] = kid
	}

	return out
}

// Attributes implements Attributer.
func (n *Node) Attributes() map[string]any { return n.Attrs }

// Tokens implements Tokenizer.
func (n *Node) Tokens() []string { return n.Toks }

// Add appends children and returns n.
func (n *Node) Add(kids ...*Node) *Node {
	n.Kids = append(n.Kids, kids...)

	return n
}

// SetAttr records a front-end specific attribute.
func (n *Node) SetAttr(key string, value any) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}

	n.Attrs[key] = value
}
