// Package block defines the unit of content addressing: typed content
// blocks with structural-anchor identities. Blocks are produced by an
// external markdown parser for every scan, handed to the tree builder,
// and folded into merkle nodes — the engine retains no block text after
// tree construction.
package block

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrOutlineEmpty indicates an empty outline was given to AssignAnchors.
	ErrOutlineEmpty = errors.New("block: outline is empty")

	// ErrOutlineParent indicates an outline entry references an invalid
	// parent index.
	ErrOutlineParent = errors.New("block: invalid outline parent reference")

	// ErrOutlineRoot indicates the outline does not have exactly one root.
	ErrOutlineRoot = errors.New("block: outline must have exactly one root")
)

// =============================================================================
// Block
// =============================================================================

// Block is one typed content block of a document. Immutable once
// constructed; created fresh by the parser on every scan.
type Block struct {
	// ID is the block's structural anchor.
	ID ID

	// Kind is the block's content type.
	Kind Kind

	// RawText is the block's exact source text. Retained for downstream
	// consumers that need exact bytes; never hashed directly.
	RawText string

	// NormalizedText is the canonicalized text, when the producer has
	// already normalized. Left empty, the tree builder normalizes
	// RawText itself under its configured policy.
	NormalizedText string

	// Depth is the block's distance from the document root (root is 0).
	Depth int

	// Parent is the parent block's anchor, nil for the root.
	Parent *ID

	// OrderInParent is the block's position in its parent's ordered
	// child sequence.
	OrderInParent int
}

// IsRoot reports whether the block is a document root.
func (b *Block) IsRoot() bool {
	return b.Parent == nil
}

// =============================================================================
// Outline
// =============================================================================

// Outline is a positional parser output entry, before anchors are
// assigned: the block's kind and text plus the slice index of its
// parent (-1 for the root). Parents must appear before their children.
type Outline struct {
	Kind    Kind
	RawText string
	Parent  int
}

// AssignAnchors converts positional outline entries into Blocks with
// structural-anchor IDs assigned deterministically: the root anchor is
// derived from docKey, every child anchor from its parent's anchor, its
// kind, and its appearance ordinal among same-kind siblings.
func AssignAnchors(docKey string, outline []Outline) ([]Block, error) {
	if len(outline) == 0 {
		return nil, ErrOutlineEmpty
	}

	blocks := make([]Block, len(outline))
	childCount := make([]int, len(outline))
	kindOrdinals := make([]map[Kind]int, len(outline))
	rootSeen := false

	for i, entry := range outline {
		if entry.Parent < 0 {
			if rootSeen {
				return nil, fmt.Errorf("%w: second root at index %d", ErrOutlineRoot, i)
			}
			rootSeen = true

			blocks[i] = Block{
				ID:      RootID(docKey),
				Kind:    entry.Kind,
				RawText: entry.RawText,
			}
			kindOrdinals[i] = make(map[Kind]int)
			continue
		}

		if entry.Parent >= i {
			return nil, fmt.Errorf("%w: entry %d references parent %d", ErrOutlineParent, i, entry.Parent)
		}

		parent := &blocks[entry.Parent]
		ordinal := kindOrdinals[entry.Parent][entry.Kind]
		kindOrdinals[entry.Parent][entry.Kind] = ordinal + 1

		blocks[i] = Block{
			ID:            ChildID(parent.ID, entry.Kind, ordinal),
			Kind:          entry.Kind,
			RawText:       entry.RawText,
			Depth:         parent.Depth + 1,
			Parent:        &parent.ID,
			OrderInParent: childCount[entry.Parent],
		}
		childCount[entry.Parent]++
		kindOrdinals[i] = make(map[Kind]int)
	}

	if !rootSeen {
		return nil, ErrOutlineRoot
	}

	return blocks, nil
}
