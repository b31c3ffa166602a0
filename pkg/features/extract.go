package features

import (
	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

// Reflector turns cursors into feature records.
// It holds no per-call state and is safe for concurrent use.
type Reflector struct {
	tokens bool
}

// Option configures a Reflector.
type Option func(*Reflector)

// WithTokens includes the cursor's source tokens in node records when the
// front-end provides them.
func WithTokens(enabled bool) Option {
	return func(r *Reflector) {
		r.tokens = enabled
	}
}

// NewReflector creates a Reflector.
func NewReflector(opts ...Option) *Reflector {
	r := &Reflector{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Extract reflects one facet: an ast.Kind, an ast.Cursor or an ast.Type.
// Any other value yields an empty record.
func Extract(facet any) Record {
	switch f := facet.(type) {
	case ast.Kind:
		return Apply(KindSchema, f)
	case ast.Type:
		return Apply(TypeSchema, f)
	case ast.Cursor:
		return cursorRecord(f)
	default:
		return Record{}
	}
}

func cursorRecord(c ast.Cursor) Record {
	rec := Apply(CursorSchema, c)

	attr, ok := c.(ast.Attributer)
	if !ok {
		return rec
	}

	for k, v := range attr.Attributes() {
		if Denied(k) || rec.Has(k) {
			continue
		}

		if norm, ok := normalizeValue(v); ok {
			rec[k] = norm
		}
	}

	return rec
}

// normalizeValue keeps only record-safe value types.
func normalizeValue(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool, int, int64, []string:
		return x, true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}

		return nil, false
	case ast.Kind, ast.TypeKind, ast.Access:
		return x.(interface{ String() string }).String(), true
	case ast.Type:
		return x.Spelling, true
	default:
		return nil, false
	}
}

// Node builds the full record for cursor c at the given tree depth.
func (r *Reflector) Node(c ast.Cursor, depth int) NodeRecord {
	loc := c.Location()

	nr := NodeRecord{
		Depth:  depth,
		Line:   loc.Line,
		Column: loc.Column,
		Kind:   Extract(c.Kind()),
		Cursor: cursorRecord(c),
		Type:   Extract(c.Type()),
	}

	if r.tokens {
		if tok, ok := c.(ast.Tokenizer); ok {
			nr.Tokens = tok.Tokens()
		}
	}

	if nr.Tokens == nil {
		nr.Tokens = []string{}
	}

	return nr
}
