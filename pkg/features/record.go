// Package features reflects AST cursors into flat feature records using a
// closed, versioned schema of safe introspection operations.
package features

import (
	"hash/fnv"
	"maps"
	"slices"

	json "github.com/goccy/go-json"
)

// Record is a flat mapping from feature name to value. Values are limited to
// string, bool, int, int64 and []string so records compare and serialize
// deterministically.
type Record map[string]any

// Keys returns the feature names in sorted order.
func (r Record) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Has reports whether the feature is present.
func (r Record) Has(name string) bool {
	_, ok := r[name]

	return ok
}

// Bool returns a boolean feature.
func (r Record) Bool(name string) (bool, bool) {
	v, ok := r[name].(bool)

	return v, ok
}

// Text returns a string feature.
func (r Record) Text(name string) (string, bool) {
	v, ok := r[name].(string)

	return v, ok
}

// Int returns an integer feature.
func (r Record) Int(name string) (int, bool) {
	switch v := r[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// Strings returns a string-list feature.
func (r Record) Strings(name string) ([]string, bool) {
	v, ok := r[name].([]string)

	return v, ok
}

// Equal compares two records by value.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}

	for k, v := range r {
		ov, ok := other[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}

	return true
}

// Fingerprint returns an FNV-64a hash of the canonical JSON encoding.
func (r Record) Fingerprint() uint64 {
	// Map keys are encoded in sorted order, so the encoding is canonical.
	data, err := json.Marshal(r)
	if err != nil {
		return 0
	}

	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)

		return ok && slices.Equal(av, bv)
	case Record:
		bv, ok := b.(Record)

		return ok && av.Equal(bv)
	case int:
		bi, ok := asInt64(b)

		return ok && int64(av) == bi
	case int64:
		bi, ok := asInt64(b)

		return ok && av == bi
	case string, bool:
		return a == b
	default:
		return false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	default:
		return 0, false
	}
}

// NodeRecord is the full enriched view of one tree node: position, tokens,
// and the three facet records.
type NodeRecord struct {
	Kind   Record   `json:"cursor_kind" yaml:"cursor_kind"`
	Cursor Record   `json:"cursor"      yaml:"cursor"`
	Type   Record   `json:"type"        yaml:"type"`
	Tokens []string `json:"tokens"      yaml:"tokens,omitempty"`
	Depth  int      `json:"depth"       yaml:"depth"`
	Line   int      `json:"line"        yaml:"line"`
	Column int      `json:"column"      yaml:"column"`
}

// Equal compares two node records by value.
func (nr NodeRecord) Equal(other NodeRecord) bool {
	return nr.Depth == other.Depth &&
		nr.Line == other.Line &&
		nr.Column == other.Column &&
		slices.Equal(nr.Tokens, other.Tokens) &&
		nr.Kind.Equal(other.Kind) &&
		nr.Cursor.Equal(other.Cursor) &&
		nr.Type.Equal(other.Type)
}

// KindName returns the bare cursor kind name, e.g. "STRUCT_DECL".
func (nr NodeRecord) KindName() string {
	name, _ := nr.Kind.Text(PropName)

	return name
}

// Spelling returns the cursor spelling.
func (nr NodeRecord) Spelling() string {
	s, _ := nr.Cursor.Text(PropSpelling)

	return s
}
