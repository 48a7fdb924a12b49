package merkle

import (
	"errors"
	"strings"
	"testing"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(forkBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := EncodeJSON(tree)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	decoded, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}

	if decoded.Root != tree.Root {
		t.Error("root anchor did not round-trip")
	}
	if decoded.Algorithm != tree.Algorithm {
		t.Error("algorithm tag did not round-trip")
	}
	if decoded.Len() != tree.Len() {
		t.Fatalf("node count changed: %d vs %d", decoded.Len(), tree.Len())
	}

	for id, original := range tree.Nodes {
		restored, ok := decoded.Node(id)
		if !ok {
			t.Fatalf("node %s lost in round-trip", id)
		}
		if restored.OwnDigest.Sum != original.OwnDigest.Sum {
			t.Error("own digest bytes did not round-trip exactly")
		}
		if restored.SubtreeDigest.Sum != original.SubtreeDigest.Sum {
			t.Error("subtree digest bytes did not round-trip exactly")
		}
		if restored.Kind != original.Kind || restored.Depth != original.Depth {
			t.Error("node metadata did not round-trip")
		}
		if len(restored.Children) != len(original.Children) {
			t.Error("child sequence did not round-trip")
		}
	}

	// The decoded tree must self-verify.
	if err := VerifyIntegrity(decoded); err != nil {
		t.Errorf("decoded tree failed verification: %v", err)
	}
}

func TestCodec_EncodeDeterministic(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(forkBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	first, err := EncodeJSON(tree)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	second, err := EncodeJSON(tree)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	if string(first) != string(second) {
		t.Error("encoding is not deterministic")
	}
}

func TestDecode_MalformedInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"bad algorithm", `{"root":"r","algorithm":"md5","nodes":[]}`},
		{"no nodes", `{"root":"r","algorithm":"blake3","nodes":[]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeJSON([]byte(tc.data))
			if !errors.Is(err, ErrEncoding) {
				t.Errorf("expected EncodingError, got %v", err)
			}
		})
	}
}

func TestDecode_MissingChild(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Drop a leaf from the node map, leaving a dangling child reference.
	truncated := tree.cloneShallow()
	delete(truncated.Nodes, truncated.Nodes[truncated.Root].Children[0])

	data, err := EncodeJSON(truncated)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	if _, err := DecodeJSON(data); !errors.Is(err, ErrEncoding) {
		t.Errorf("expected EncodingError for missing child, got %v", err)
	}
}

func TestDecode_OrphanNode(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Add a node no child reference can reach.
	polluted := tree.cloneShallow()
	orphanID := block.ID("orphan")
	hasher := mustUncounted(t, digest.BLAKE3)
	polluted.Nodes[orphanID] = &Node{
		ID:            orphanID,
		Kind:          block.Paragraph,
		Depth:         1,
		OwnDigest:     hasher.Sum([]byte("orphan")),
		SubtreeDigest: hasher.Sum([]byte("orphan subtree")),
	}

	data, err := EncodeJSON(polluted)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	if _, err := DecodeJSON(data); !errors.Is(err, ErrEncoding) {
		t.Errorf("expected EncodingError for orphan node, got %v", err)
	}
}

func TestDecode_AlgorithmTagDisagreement(t *testing.T) {
	t.Parallel()

	builder := mustBuilder(t, defaultConfig())
	tree, err := builder.Build(noteBlocks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := EncodeJSON(tree)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	// Rewrite the tree-level tag so node digests no longer agree. The
	// tree tag serializes before any node digest, so replacing the
	// first occurrence hits it.
	mangled := strings.Replace(string(data), `"algorithm":"blake3"`, `"algorithm":"sha256"`, 1)

	if _, err := DecodeJSON([]byte(mangled)); !errors.Is(err, ErrEncoding) {
		t.Errorf("expected EncodingError for tag disagreement, got %v", err)
	}
}
