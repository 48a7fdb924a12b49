// Package merkle builds hybrid merkle trees over ordered block
// sequences and supports localized recomputation after partial edits.
//
// The tree is "hybrid": callers can compare whole documents through the
// root digest in O(1), or look up any interior block's digest directly —
// nodes live in a flat arena map keyed by block anchor, with children
// referenced by ID rather than pointer. New tree versions produced by
// partial recompute share unchanged nodes with their predecessor.
package merkle

import (
	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

// =============================================================================
// Node
// =============================================================================

// Node is one entry of a hybrid merkle tree. OwnDigest covers the
// block's normalized text; SubtreeDigest covers OwnDigest plus the
// ordered child subtree digests, so reordering same-content siblings is
// observable at the parent. Nodes are immutable once published in a
// tree; recompute replaces nodes rather than mutating them.
type Node struct {
	ID            block.ID
	Kind          block.Kind
	Parent        *block.ID
	Depth         int
	OrderInParent int
	Children      []block.ID
	OwnDigest     digest.Digest
	SubtreeDigest digest.Digest
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// clone returns a copy of the node with its own children slice.
func (n *Node) clone() *Node {
	copied := *n
	copied.Children = make([]block.ID, len(n.Children))
	copy(copied.Children, n.Children)
	return &copied
}

// =============================================================================
// Tree
// =============================================================================

// Tree is a hybrid merkle tree: a root anchor plus a flat map of every
// node. Every ID reachable from Root through Children exists in Nodes,
// and Nodes holds no unreachable entries after a completed build.
type Tree struct {
	Root      block.ID
	Algorithm digest.Algorithm
	Nodes     map[block.ID]*Node
}

// RootDigest returns the subtree digest summarizing the whole document.
func (t *Tree) RootDigest() digest.Digest {
	if node, ok := t.Nodes[t.Root]; ok {
		return node.SubtreeDigest
	}
	return digest.Digest{}
}

// Node looks up a node by anchor. O(1), no traversal.
func (t *Tree) Node(id block.ID) (*Node, bool) {
	node, ok := t.Nodes[id]
	return node, ok
}

// Has reports whether an anchor exists in the tree.
func (t *Tree) Has(id block.ID) bool {
	_, ok := t.Nodes[id]
	return ok
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Leaves returns the anchors of all childless nodes in document order.
func (t *Tree) Leaves() []block.ID {
	leaves := make([]block.ID, 0, len(t.Nodes))
	t.walkPreorder(t.Root, func(n *Node) {
		if n.IsLeaf() {
			leaves = append(leaves, n.ID)
		}
	})
	return leaves
}

// WalkPreorder visits every node reachable from the root in document
// order: each block before its children, siblings by OrderInParent.
func (t *Tree) WalkPreorder(visit func(*Node)) {
	t.walkPreorder(t.Root, visit)
}

// walkPreorder visits the subtree under id in document order.
func (t *Tree) walkPreorder(id block.ID, visit func(*Node)) {
	node, ok := t.Nodes[id]
	if !ok {
		return
	}
	visit(node)
	for _, child := range node.Children {
		t.walkPreorder(child, visit)
	}
}

// cloneShallow returns a new Tree sharing every node with the receiver.
// Recompute operates on the copy; the original stays valid for readers.
func (t *Tree) cloneShallow() *Tree {
	nodes := make(map[block.ID]*Node, len(t.Nodes))
	for id, node := range t.Nodes {
		nodes[id] = node
	}
	return &Tree{Root: t.Root, Algorithm: t.Algorithm, Nodes: nodes}
}

// =============================================================================
// Stats
// =============================================================================

// Stats summarizes a tree for instrumentation.
type Stats struct {
	NodeCount  int
	LeafCount  int
	MaxDepth   int
	RootDigest digest.Digest
}

// Stats computes summary statistics for the tree.
func (t *Tree) Stats() Stats {
	stats := Stats{RootDigest: t.RootDigest()}
	t.walkPreorder(t.Root, func(n *Node) {
		stats.NodeCount++
		if n.IsLeaf() {
			stats.LeafCount++
		}
		if n.Depth > stats.MaxDepth {
			stats.MaxDepth = n.Depth
		}
	})
	return stats
}
