package merkle

import (
	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

// Section is a read-only view over a contiguous run of blocks: an
// anchor (typically a heading) and every block beneath it, in document
// order. Sections are materialized on demand from a tree and never
// persisted; they exist to scope partial-recompute requests and to let
// callers answer "did anything under this anchor change" through the
// anchor's subtree digest alone.
type Section struct {
	Root    block.ID
	Members []block.ID
}

// Len returns the number of blocks in the section, anchor included.
func (s Section) Len() int {
	return len(s.Members)
}

// Contains reports whether the anchor belongs to the section.
func (s Section) Contains(id block.ID) bool {
	for _, member := range s.Members {
		if member == id {
			return true
		}
	}
	return false
}

// VirtualSection materializes the section anchored at the given block.
// Members are listed in document order, the anchor first.
func VirtualSection(tree *Tree, anchor block.ID) (Section, error) {
	if !tree.Has(anchor) {
		return Section{}, structuralErr(ReasonUnknownBlock, anchor)
	}

	section := Section{Root: anchor}
	tree.walkPreorder(anchor, func(n *Node) {
		section.Members = append(section.Members, n.ID)
	})
	return section, nil
}

// SectionDigest returns the subtree digest summarizing the section: the
// anchor's subtree digest, which already covers every member.
func SectionDigest(tree *Tree, section Section) (digest.Digest, bool) {
	node, found := tree.Node(section.Root)
	if !found {
		return digest.Digest{}, false
	}
	return node.SubtreeDigest, true
}
