package features

import (
	"fmt"
	"strings"
)

// SchemaVersion identifies the feature schema. Bump it when a feature is
// added, removed or changes meaning.
const SchemaVersion = 3

// Class partitions features by naming convention.
type Class uint8

// Feature classes.
const (
	ClassPredicate Class = iota // "is_*", boolean.
	ClassGetter                 // "get_*", derived value.
	ClassProperty               // Plain value.
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassPredicate:
		return "predicate"
	case ClassGetter:
		return "getter"
	case ClassProperty:
		return "property"
	default:
		return "unknown"
	}
}

// ClassOf infers a feature's class from its name.
func ClassOf(name string) Class {
	switch {
	case strings.HasPrefix(name, "is_"):
		return ClassPredicate
	case strings.HasPrefix(name, "get_"):
		return ClassGetter
	default:
		return ClassProperty
	}
}

// Feature is one named, safe introspection operation on facet T. Extract
// returns ok=false when the operation does not apply to the given value.
type Feature[T any] struct {
	Extract func(T) (any, bool)
	Name    string
}

// Schema is an ordered, closed list of features for facet T.
type Schema[T any] []Feature[T]

// denyList names operations that are never evaluated, whatever schema or
// front-end attribute set offers them.
var denyList = map[string]struct{}{
	"mangled_name":      {},
	"get_address_space": {},
	"get_typedef_name":  {},
	"tls_kind":          {},
}

// Denied reports whether name is on the hard-coded deny-list.
func Denied(name string) bool {
	_, ok := denyList[name]

	return ok
}

// Apply evaluates every feature of schema on facet. A feature that panics or
// reports not-applicable is absent from the result.
func Apply[T any](schema Schema[T], facet T) Record {
	out := make(Record, len(schema))

	for _, f := range schema {
		if Denied(f.Name) {
			continue
		}

		v, ok := safeExtract(f, facet)
		if !ok {
			continue
		}

		out[f.Name] = v
	}

	return out
}

func safeExtract[T any](f Feature[T], facet T) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = nil, false
		}
	}()

	return f.Extract(facet)
}

// Validate checks schema invariants: unique names, predicate results are
// booleans by construction of the name, and nothing on the deny-list.
func (s Schema[T]) Validate() error {
	seen := make(map[string]struct{}, len(s))

	for _, f := range s {
		if f.Name == "" || f.Extract == nil {
			return fmt.Errorf("%w: empty feature", errInvalidSchema)
		}

		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate feature %q", errInvalidSchema, f.Name)
		}

		if Denied(f.Name) {
			return fmt.Errorf("%w: feature %q is deny-listed", errInvalidSchema, f.Name)
		}

		seen[f.Name] = struct{}{}
	}

	return nil
}

// Names returns feature names grouped by class, each in schema order.
func (s Schema[T]) Names() map[Class][]string {
	out := make(map[Class][]string, 3) //nolint:mnd // three classes.
	for _, f := range s {
		c := ClassOf(f.Name)
		out[c] = append(out[c], f.Name)
	}

	return out
}
