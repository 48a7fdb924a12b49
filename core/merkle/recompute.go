package merkle

import (
	"sort"

	"github.com/adalundhe/quill/core/block"
)

// =============================================================================
// Single-Block Recompute
// =============================================================================

// RecomputePath produces a new tree reflecting a content edit to a
// single block: only the edited block's own digest and the subtree
// digests along its path to the root are recomputed. All sibling
// subtrees are reused by reference. This makes a single-block edit
// O(depth) instead of O(n).
//
// The input tree is never mutated; readers holding it keep a consistent
// snapshot.
func (b *Builder) RecomputePath(tree *Tree, id block.ID, newRaw string) (*Tree, error) {
	if tree.Algorithm != b.Algorithm() {
		return nil, algorithmMismatch(tree.Algorithm, b.Algorithm())
	}
	if !tree.Has(id) {
		return nil, structuralErr(ReasonUnknownBlock, id)
	}

	next := tree.cloneShallow()

	edited := next.Nodes[id].clone()
	edited.OwnDigest = b.digestText(b.norm.Normalize(newRaw))
	edited.SubtreeDigest = b.combine(next, edited)
	next.Nodes[id] = edited

	b.recomputeAncestors(next, edited.Parent)

	return next, nil
}

// recomputeAncestors re-derives subtree digests from the given anchor
// up to the root, replacing each ancestor with an updated copy.
func (b *Builder) recomputeAncestors(tree *Tree, parent *block.ID) {
	for parent != nil {
		ancestor := tree.Nodes[*parent].clone()
		ancestor.SubtreeDigest = b.combine(tree, ancestor)
		tree.Nodes[ancestor.ID] = ancestor
		parent = ancestor.Parent
	}
}

// =============================================================================
// Batch Recompute
// =============================================================================

// RecomputeBatch applies several simultaneous content edits, folding
// the single-block algorithm with ancestor deduplication: an ancestor
// with two changed descendants is recomputed exactly once, from both
// already-updated children. The input tree is never mutated.
func (b *Builder) RecomputeBatch(tree *Tree, edits map[block.ID]string) (*Tree, error) {
	if tree.Algorithm != b.Algorithm() {
		return nil, algorithmMismatch(tree.Algorithm, b.Algorithm())
	}
	for id := range edits {
		if !tree.Has(id) {
			return nil, structuralErr(ReasonUnknownBlock, id)
		}
	}
	if len(edits) == 0 {
		return tree.cloneShallow(), nil
	}

	next := tree.cloneShallow()

	// Replace own digests first, then combine the dirty closure (edited
	// blocks plus all their ancestors) in strictly decreasing depth
	// order, so every dirty node is combined exactly once, after all of
	// its changed descendants.
	dirty := make(map[block.ID]bool, len(edits))
	for id, raw := range edits {
		edited := next.Nodes[id].clone()
		edited.OwnDigest = b.digestText(b.norm.Normalize(raw))
		next.Nodes[id] = edited
		dirty[id] = true
	}

	for _, node := range dirtyByDepthDesc(next, dirty) {
		updated := next.Nodes[node].clone()
		updated.SubtreeDigest = b.combine(next, updated)
		next.Nodes[node] = updated
	}

	return next, nil
}

// dirtyByDepthDesc expands the dirty set to its ancestor closure and
// returns it in strictly decreasing depth order, each anchor exactly
// once. Dirty nodes at equal depth are ordered by anchor for
// determinism.
func dirtyByDepthDesc(tree *Tree, dirty map[block.ID]bool) []block.ID {
	byDepth := make(map[int][]block.ID)
	maxDepth := 0
	for id := range dirty {
		depth := tree.Nodes[id].Depth
		byDepth[depth] = append(byDepth[depth], id)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	ordered := make([]block.ID, 0, len(dirty)*2)
	for depth := maxDepth; depth >= 0; depth-- {
		level := byDepth[depth]
		sort.Slice(level, func(i, j int) bool { return level[i] < level[j] })
		ordered = append(ordered, level...)

		// Parents marked dirty while combining this level surface at
		// depth-1; collect them before descending.
		if depth > 0 {
			next := make([]block.ID, 0)
			for _, id := range level {
				parent := tree.Nodes[id].Parent
				if parent != nil && !contains(byDepth[depth-1], *parent) {
					next = append(next, *parent)
				}
			}
			byDepth[depth-1] = append(byDepth[depth-1], dedupe(next)...)
		}
	}
	return ordered
}

// contains reports whether ids holds id.
func contains(ids []block.ID, id block.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// dedupe removes duplicate anchors, preserving first occurrence.
func dedupe(ids []block.ID) []block.ID {
	seen := make(map[block.ID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
