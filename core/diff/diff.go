// Package diff compares two merkle trees of the same document and
// reports which blocks were added, removed, or modified. Comparison
// prunes on matching subtree digests, so the work done scales with the
// size of the change rather than the size of the document.
package diff

import (
	"sort"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
	"github.com/adalundhe/quill/core/merkle"
)

// =============================================================================
// Result
// =============================================================================

// TreeDiff is the outcome of comparing an old tree against a new one.
// Added and Removed hold anchors present in only one tree. Modified
// holds anchors present in both whose subtree digest differs, so an
// interior block appears here when any of its descendants changed.
// ContentChanged is the subset of Modified whose own digest differs,
// identifying the blocks whose text was actually edited. Moved pairs an
// old anchor with the new anchor carrying identical content, populated
// only when move detection is enabled.
type TreeDiff struct {
	Added          map[block.ID]struct{}
	Removed        map[block.ID]struct{}
	Modified       map[block.ID]struct{}
	ContentChanged map[block.ID]struct{}
	Moved          map[block.ID]block.ID

	// UnchangedRoot is true when the root digests matched and the
	// comparison stopped without walking either tree.
	UnchangedRoot bool
}

// Options controls optional diff behavior.
type Options struct {
	// DetectMoves pairs removed and added blocks that carry identical
	// content and kind, reporting them as relocations instead of
	// delete-plus-insert. Pairing follows document order on both sides.
	DetectMoves bool
}

func newTreeDiff() *TreeDiff {
	return &TreeDiff{
		Added:          make(map[block.ID]struct{}),
		Removed:        make(map[block.ID]struct{}),
		Modified:       make(map[block.ID]struct{}),
		ContentChanged: make(map[block.ID]struct{}),
		Moved:          make(map[block.ID]block.ID),
	}
}

// IsEmpty reports whether the diff found no change at all.
func (d *TreeDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Modified) == 0 &&
		len(d.Moved) == 0
}

// Touched returns every anchor the diff mentions, sorted, for stable
// iteration by callers that apply changes in a deterministic order.
func (d *TreeDiff) Touched() []block.ID {
	seen := make(map[block.ID]struct{},
		len(d.Added)+len(d.Removed)+len(d.Modified)+2*len(d.Moved))
	for id := range d.Added {
		seen[id] = struct{}{}
	}
	for id := range d.Removed {
		seen[id] = struct{}{}
	}
	for id := range d.Modified {
		seen[id] = struct{}{}
	}
	for from, to := range d.Moved {
		seen[from] = struct{}{}
		seen[to] = struct{}{}
	}

	out := make([]block.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LeafModified narrows Modified to blocks that are leaves in tree,
// sorted. Interior anchors in Modified only say "something in this
// subtree changed"; the leaf intersection gives the blocks whose own
// content is the change.
func (d *TreeDiff) LeafModified(tree *merkle.Tree) []block.ID {
	out := make([]block.ID, 0, len(d.Modified))
	for id := range d.Modified {
		if node, ok := tree.Node(id); ok && node.IsLeaf() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// Comparison
// =============================================================================

// Diff compares oldTree against newTree with default options.
func Diff(oldTree, newTree *merkle.Tree) (*TreeDiff, error) {
	return DiffWithOptions(oldTree, newTree, Options{})
}

// DiffWithOptions compares oldTree against newTree. Both trees must
// carry the same digest algorithm; mixed-algorithm comparison fails
// rather than reporting everything as changed. When the root digests
// match the result is a single O(1) check.
func DiffWithOptions(oldTree, newTree *merkle.Tree, opts Options) (*TreeDiff, error) {
	if oldTree.Algorithm != newTree.Algorithm {
		return nil, &digest.AlgorithmMismatchError{
			Left:  oldTree.Algorithm,
			Right: newTree.Algorithm,
		}
	}

	result := newTreeDiff()

	if oldTree.Root == newTree.Root {
		same, err := oldTree.RootDigest().Equal(newTree.RootDigest())
		if err != nil {
			return nil, err
		}
		if same {
			result.UnchangedRoot = true
			return result, nil
		}
		compareSubtrees(result, oldTree, newTree, oldTree.Root)
	} else {
		// Different root anchors mean different documents: nothing
		// matches structurally, so one tree drains into Removed and
		// the other into Added.
		markSubtree(oldTree, oldTree.Root, result.Removed)
		markSubtree(newTree, newTree.Root, result.Added)
	}

	if opts.DetectMoves {
		detectMoves(result, oldTree, newTree)
	}
	return result, nil
}

// compareSubtrees walks a pair of matched subtrees rooted at the same
// anchor. Matching subtree digests prune the walk; differing ones mark
// the node modified and recurse into the children union.
func compareSubtrees(result *TreeDiff, oldTree, newTree *merkle.Tree, id block.ID) {
	oldNode, _ := oldTree.Node(id)
	newNode, _ := newTree.Node(id)

	if oldNode.Kind != newNode.Kind {
		result.Modified[id] = struct{}{}
	}
	if oldNode.SubtreeDigest.Sum == newNode.SubtreeDigest.Sum {
		return
	}

	result.Modified[id] = struct{}{}
	if oldNode.OwnDigest.Sum != newNode.OwnDigest.Sum {
		result.ContentChanged[id] = struct{}{}
	}

	for _, child := range newNode.Children {
		if oldTree.Has(child) {
			compareSubtrees(result, oldTree, newTree, child)
		} else {
			markSubtree(newTree, child, result.Added)
		}
	}
	for _, child := range oldNode.Children {
		if !newTree.Has(child) {
			markSubtree(oldTree, child, result.Removed)
		}
	}
}

// markSubtree records every anchor under id into the given set.
func markSubtree(tree *merkle.Tree, id block.ID, set map[block.ID]struct{}) {
	node, ok := tree.Node(id)
	if !ok {
		return
	}
	set[id] = struct{}{}
	for _, child := range node.Children {
		markSubtree(tree, child, set)
	}
}

// =============================================================================
// Move Detection
// =============================================================================

// detectMoves re-pairs removed and added blocks whose content and kind
// are identical, shifting them from Removed and Added into Moved.
// Candidates on both sides resolve in document order, so when two
// removed blocks could claim the same added block the one appearing
// earlier in the old document wins.
func detectMoves(result *TreeDiff, oldTree, newTree *merkle.Tree) {
	if len(result.Removed) == 0 || len(result.Added) == 0 {
		return
	}

	removed := inDocumentOrder(oldTree, result.Removed)
	added := inDocumentOrder(newTree, result.Added)

	claimed := make(map[block.ID]struct{}, len(added))
	for _, from := range removed {
		oldNode, _ := oldTree.Node(from)
		for _, to := range added {
			if _, taken := claimed[to]; taken {
				continue
			}
			newNode, _ := newTree.Node(to)
			if newNode.Kind != oldNode.Kind {
				continue
			}
			if newNode.OwnDigest.Sum != oldNode.OwnDigest.Sum {
				continue
			}
			result.Moved[from] = to
			claimed[to] = struct{}{}
			delete(result.Removed, from)
			delete(result.Added, to)
			break
		}
	}
}

// inDocumentOrder returns the members of set ordered by a preorder walk
// of tree. Set members outside the walk (never the case for sets built
// by this package) would be dropped.
func inDocumentOrder(tree *merkle.Tree, set map[block.ID]struct{}) []block.ID {
	out := make([]block.ID, 0, len(set))
	tree.WalkPreorder(func(n *merkle.Node) {
		if _, ok := set[n.ID]; ok {
			out = append(out, n.ID)
		}
	})
	return out
}
