package merkle

import (
	"errors"
	"testing"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

func TestVerifyIntegrity_FreshTree(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(forkBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := VerifyIntegrity(tree); err != nil {
		t.Errorf("freshly built tree failed verification: %v", err)
	}
}

func TestVerifyIntegrity_AfterRecompute(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(forkBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	leaf := block.ChildID(block.ChildID(tree.Root, block.Heading, 0), block.Paragraph, 0)
	updated, err := builder.RecomputePath(tree, leaf, "rewritten")
	if err != nil {
		t.Fatalf("RecomputePath: %v", err)
	}

	if err := VerifyIntegrity(updated); err != nil {
		t.Errorf("recomputed tree failed verification: %v", err)
	}
}

func TestVerifyIntegrity_TamperedSubtreeDigest(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tampered := tree.cloneShallow()
	leafID := tampered.Nodes[tampered.Root].Children[0]
	leaf := tampered.Nodes[leafID].clone()
	leaf.SubtreeDigest.Sum[0] ^= 0xff
	tampered.Nodes[leafID] = leaf

	err = VerifyIntegrity(tampered)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestVerifyIntegrity_TamperedOwnDigest(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Flipping an own digest invalidates the node's recorded subtree
	// digest even though the children are consistent.
	tampered := tree.cloneShallow()
	root := tampered.Nodes[tampered.Root].clone()
	root.OwnDigest.Sum[0] ^= 0xff
	tampered.Nodes[tampered.Root] = root

	if err := VerifyIntegrity(tampered); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected IntegrityError, got %v", err)
	}
}

func TestVerifyIntegrity_BrokenBackLink(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tampered := tree.cloneShallow()
	leafID := tampered.Nodes[tampered.Root].Children[0]
	leaf := tampered.Nodes[leafID].clone()
	wrong := block.ID("elsewhere")
	leaf.Parent = &wrong
	tampered.Nodes[leafID] = leaf

	if err := VerifyIntegrity(tampered); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected IntegrityError, got %v", err)
	}
}

func TestVerifyIntegrity_UnreachableNode(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	hasher := mustUncounted(t, digest.BLAKE3)
	polluted := tree.cloneShallow()
	strayID := block.ID("stray")
	polluted.Nodes[strayID] = &Node{
		ID:            strayID,
		Kind:          block.Paragraph,
		Depth:         1,
		OwnDigest:     hasher.Sum([]byte("stray")),
		SubtreeDigest: hasher.Sum([]byte("stray subtree")),
	}

	if err := VerifyIntegrity(polluted); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected IntegrityError, got %v", err)
	}
}

func TestVerifyIntegrity_MissingRoot(t *testing.T) {
	t.Parallel()

	tree := &Tree{
		Root:      block.ID("absent"),
		Algorithm: digest.BLAKE3,
		Nodes:     map[block.ID]*Node{},
	}

	if err := VerifyIntegrity(tree); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected IntegrityError, got %v", err)
	}
}
