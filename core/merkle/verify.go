package merkle

import (
	"github.com/adalundhe/quill/core/digest"
)

// VerifyIntegrity re-derives every subtree digest from the stored own
// digests and compares it against the recorded value, and checks node
// linkage along the way. It detects tampered or corrupted persisted
// trees after decode; own digests cannot be rechecked here because the
// engine does not retain block text.
func VerifyIntegrity(tree *Tree) error {
	if !tree.Has(tree.Root) {
		return &IntegrityError{Detail: "root not present", ID: tree.Root}
	}

	hasher, err := digest.New(tree.Algorithm)
	if err != nil {
		return err
	}
	sentinel, err := digest.EmptyChildrenSentinel(tree.Algorithm)
	if err != nil {
		return err
	}

	reachable := 0
	var fail *IntegrityError
	tree.walkPreorder(tree.Root, func(n *Node) {
		reachable++
		if fail != nil {
			return
		}
		fail = verifyNode(tree, n, hasher, sentinel)
	})
	if fail != nil {
		return fail
	}

	if reachable != len(tree.Nodes) {
		return &IntegrityError{Detail: "tree contains unreachable nodes"}
	}
	return nil
}

// verifyNode recomputes one node's subtree digest and checks tags,
// child presence, and parent back-links.
func verifyNode(tree *Tree, n *Node, hasher digest.Hasher, sentinel digest.Digest) *IntegrityError {
	if n.OwnDigest.Algorithm != tree.Algorithm || n.SubtreeDigest.Algorithm != tree.Algorithm {
		return &IntegrityError{Detail: "digest algorithm disagrees with tree", ID: n.ID}
	}

	buf := make([]byte, 0, digest.Size*(len(n.Children)+2))
	buf = append(buf, n.OwnDigest.Sum[:]...)

	if len(n.Children) == 0 {
		buf = append(buf, sentinel.Sum[:]...)
	} else {
		for _, childID := range n.Children {
			child, ok := tree.Node(childID)
			if !ok {
				return &IntegrityError{Detail: "child missing from node map", ID: childID}
			}
			if child.Parent == nil || *child.Parent != n.ID {
				return &IntegrityError{Detail: "child parent back-link broken", ID: childID}
			}
			buf = append(buf, child.SubtreeDigest.Sum[:]...)
		}
	}

	expected := hasher.Sum(buf)
	if expected.Sum != n.SubtreeDigest.Sum {
		return &IntegrityError{Detail: "subtree digest mismatch", ID: n.ID}
	}
	return nil
}
