// Package parse builds enriched AST trees from a front-end translation unit
// and indexes them for record-based lookups.
package parse

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
	"github.com/Sumatoshi-tech/clangbind/pkg/features"
)

// treeSerial hands out process-unique tree numbers so NodeIDs are never
// reused across trees.
var treeSerial atomic.Uint64

// NodeID identifies one node in one tree. The zero value is not a valid ID.
type NodeID struct {
	tree  uint64
	index uint32
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id.tree == 0
}

// String renders the ID as tree/index.
func (id NodeID) String() string {
	return fmt.Sprintf("%d/%d", id.tree, id.index)
}

// Node is one arena entry.
type Node struct {
	Cursor   ast.Cursor
	Record   features.NodeRecord
	Children []NodeID
	ID       NodeID
	Parent   NodeID
}

// Tree is an ordered, rooted arena of enriched nodes.
type Tree struct {
	Index       *Index
	File        string
	Diagnostics ast.Diagnostics
	nodes       []Node
	serial      uint64
}

func newTree(file string) *Tree {
	return &Tree{
		File:   file,
		serial: treeSerial.Add(1),
	}
}

func (t *Tree) add(parent NodeID, c ast.Cursor, rec features.NodeRecord) NodeID {
	id := NodeID{tree: t.serial, index: uint32(len(t.nodes))} //nolint:gosec // arena size is bounded by one TU.

	t.nodes = append(t.nodes, Node{ID: id, Parent: parent, Cursor: c, Record: rec})

	if !parent.IsZero() {
		p := &t.nodes[parent.index]
		p.Children = append(p.Children, id)
	}

	return id
}

func (t *Tree) owns(id NodeID) bool {
	return id.tree == t.serial && int(id.index) < len(t.nodes)
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the translation unit node ID.
func (t *Tree) Root() NodeID {
	if len(t.nodes) == 0 {
		return NodeID{}
	}

	return t.nodes[0].ID
}

// Node returns the node for id.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	if !t.owns(id) {
		return nil, false
	}

	return &t.nodes[id.index], true
}

// Children returns the child IDs of id in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}

	return n.Children
}

// Parent returns the parent of id; the root has none.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	n, ok := t.Node(id)
	if !ok || n.Parent.IsZero() {
		return NodeID{}, false
	}

	return n.Parent, true
}

// Walk yields every node in pre-order, which is source order.
func (t *Tree) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if len(t.nodes) == 0 {
			return
		}

		t.walk(t.nodes[0].ID, yield)
	}
}

func (t *Tree) walk(id NodeID, yield func(*Node) bool) bool {
	n := &t.nodes[id.index]
	if !yield(n) {
		return false
	}

	for _, kid := range n.Children {
		if !t.walk(kid, yield) {
			return false
		}
	}

	return true
}

// PathsToLeaves returns every root-to-leaf path, leaves in pre-order.
func (t *Tree) PathsToLeaves() [][]NodeID {
	var out [][]NodeID

	for n := range t.Walk() {
		if len(n.Children) > 0 {
			continue
		}

		var path []NodeID
		for id := n.ID; !id.IsZero(); id = t.nodes[id.index].Parent {
			path = append(path, id)
		}

		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}

		out = append(out, path)
	}

	return out
}

// Qualifier returns the "::"-joined names of the enclosing namespaces and
// records of id, outermost first. Anonymous and inline scopes are skipped.
func (t *Tree) Qualifier(id NodeID) string {
	var parts []string

	for p, ok := t.Parent(id); ok; p, ok = t.Parent(p) {
		n := &t.nodes[p.index]

		switch k := n.Cursor.Kind(); {
		case k == ast.KindNamespace, k.IsRecord(), k == ast.KindClassTemplate:
			if name := n.Cursor.Spelling(); name != "" {
				parts = append(parts, name)
			}
		default:
		}
	}

	out := ""

	for i := len(parts) - 1; i >= 0; i-- {
		if out != "" {
			out += "::"
		}

		out += parts[i]
	}

	return out
}

// Dump is a serializable nested view of a tree.
type Dump struct {
	Record   features.NodeRecord `json:"record"             yaml:"record"`
	Children []Dump              `json:"children,omitempty" yaml:"children,omitempty"`
}

// Dump returns the nested view of the subtree rooted at id.
func (t *Tree) Dump(id NodeID) Dump {
	n, ok := t.Node(id)
	if !ok {
		return Dump{}
	}

	d := Dump{Record: n.Record}
	for _, kid := range n.Children {
		d.Children = append(d.Children, t.Dump(kid))
	}

	return d
}
