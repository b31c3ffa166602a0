package parse

import (
	"github.com/Sumatoshi-tech/clangbind/pkg/features"
)

// Index maps node identities to their records and back. Record lookups are
// linear scans in registration order, which is source pre-order, so the first
// equal record wins.
type Index struct {
	tree  *Tree
	order []NodeID
}

func newIndex(t *Tree) *Index {
	return &Index{tree: t}
}

func (ix *Index) register(id NodeID) {
	ix.order = append(ix.order, id)
}

// Len returns the number of registered nodes.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Record returns the record registered for id.
func (ix *Index) Record(id NodeID) (features.NodeRecord, bool) {
	n, ok := ix.tree.Node(id)
	if !ok {
		return features.NodeRecord{}, false
	}

	return n.Record, true
}

// Lookup finds the identity of the first node whose record equals rec.
func (ix *Index) Lookup(rec features.NodeRecord) (NodeID, bool) {
	for _, id := range ix.order {
		if ix.tree.nodes[id.index].Record.Equal(rec) {
			return id, true
		}
	}

	return NodeID{}, false
}

// ChildrenOf returns the records of the children of the node matching rec.
func (ix *Index) ChildrenOf(rec features.NodeRecord) []features.NodeRecord {
	id, ok := ix.Lookup(rec)
	if !ok {
		return nil
	}

	return ix.Records(ix.tree.Children(id))
}

// ParentOf returns the record of the parent of the node matching rec.
func (ix *Index) ParentOf(rec features.NodeRecord) (features.NodeRecord, bool) {
	id, ok := ix.Lookup(rec)
	if !ok {
		return features.NodeRecord{}, false
	}

	parent, ok := ix.tree.Parent(id)
	if !ok {
		return features.NodeRecord{}, false
	}

	return ix.Record(parent)
}

// Records resolves identities to records, skipping unknown IDs.
func (ix *Index) Records(ids []NodeID) []features.NodeRecord {
	out := make([]features.NodeRecord, 0, len(ids))

	for _, id := range ids {
		if rec, ok := ix.Record(id); ok {
			out = append(out, rec)
		}
	}

	return out
}
