package merkle

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

// =============================================================================
// Wire Types
// =============================================================================

// treeJSON is the persisted form of a Tree.
type treeJSON struct {
	Root      string     `json:"root"`
	Algorithm string     `json:"algorithm"`
	Nodes     []nodeJSON `json:"nodes"`
}

// nodeJSON is the persisted form of a Node. Digests serialize through
// their own codec (algorithm tag plus hex sum) and round-trip
// byte-exactly.
type nodeJSON struct {
	ID            string        `json:"id"`
	Kind          string        `json:"kind"`
	Parent        *string       `json:"parent,omitempty"`
	Depth         int           `json:"depth"`
	Order         int           `json:"order"`
	Children      []string      `json:"children,omitempty"`
	OwnDigest     digest.Digest `json:"own_digest"`
	SubtreeDigest digest.Digest `json:"subtree_digest"`
}

// =============================================================================
// Encode
// =============================================================================

// EncodeJSON serializes a tree for persistence. Node order is sorted by
// anchor so encoding is deterministic.
func EncodeJSON(tree *Tree) ([]byte, error) {
	wire := treeJSON{
		Root:      string(tree.Root),
		Algorithm: tree.Algorithm.String(),
		Nodes:     make([]nodeJSON, 0, len(tree.Nodes)),
	}

	for _, node := range tree.Nodes {
		wire.Nodes = append(wire.Nodes, encodeNode(node))
	}
	sort.Slice(wire.Nodes, func(i, j int) bool {
		return wire.Nodes[i].ID < wire.Nodes[j].ID
	})

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, encodingErr(err)
	}
	return data, nil
}

// encodeNode converts a Node to its wire form.
func encodeNode(node *Node) nodeJSON {
	wire := nodeJSON{
		ID:            string(node.ID),
		Kind:          node.Kind.String(),
		Depth:         node.Depth,
		Order:         node.OrderInParent,
		OwnDigest:     node.OwnDigest,
		SubtreeDigest: node.SubtreeDigest,
	}

	if node.Parent != nil {
		parent := string(*node.Parent)
		wire.Parent = &parent
	}
	for _, child := range node.Children {
		wire.Children = append(wire.Children, string(child))
	}
	return wire
}

// =============================================================================
// Decode
// =============================================================================

// DecodeJSON restores a previously persisted tree, validating linkage
// before returning: the root and every referenced child must exist, no
// node may be unreachable, and every digest must carry the tree's
// algorithm tag. All failures surface as EncodingError.
func DecodeJSON(data []byte) (*Tree, error) {
	var wire treeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, encodingErr(err)
	}

	alg, err := digest.ParseAlgorithm(wire.Algorithm)
	if err != nil {
		return nil, encodingErr(err)
	}

	tree := &Tree{
		Root:      block.ID(wire.Root),
		Algorithm: alg,
		Nodes:     make(map[block.ID]*Node, len(wire.Nodes)),
	}

	for i := range wire.Nodes {
		node, err := decodeNode(&wire.Nodes[i], alg)
		if err != nil {
			return nil, err
		}
		if tree.Has(node.ID) {
			return nil, encodingErr(fmt.Errorf("duplicate node %s", node.ID))
		}
		tree.Nodes[node.ID] = node
	}

	if err := validateDecodedTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// decodeNode converts a wire node back to a Node, checking its digest
// algorithm tags against the tree's.
func decodeNode(wire *nodeJSON, alg digest.Algorithm) (*Node, error) {
	kind, err := block.ParseKind(wire.Kind)
	if err != nil {
		return nil, encodingErr(err)
	}

	if wire.OwnDigest.Algorithm != alg || wire.SubtreeDigest.Algorithm != alg {
		return nil, encodingErr(fmt.Errorf(
			"node %s digest algorithm disagrees with tree algorithm %s", wire.ID, alg,
		))
	}

	node := &Node{
		ID:            block.ID(wire.ID),
		Kind:          kind,
		Depth:         wire.Depth,
		OrderInParent: wire.Order,
		OwnDigest:     wire.OwnDigest,
		SubtreeDigest: wire.SubtreeDigest,
	}

	if wire.Parent != nil {
		parent := block.ID(*wire.Parent)
		node.Parent = &parent
	}
	for _, child := range wire.Children {
		node.Children = append(node.Children, block.ID(child))
	}
	return node, nil
}

// validateDecodedTree checks root presence, child linkage, and
// reachability over the decoded node map.
func validateDecodedTree(tree *Tree) error {
	if len(tree.Nodes) == 0 {
		return encodingErr(fmt.Errorf("tree has no nodes"))
	}
	if !tree.Has(tree.Root) {
		return encodingErr(fmt.Errorf("root %s not present", tree.Root))
	}

	reachable := 0
	var missing *block.ID
	tree.walkPreorder(tree.Root, func(n *Node) {
		reachable++
		for _, child := range n.Children {
			if !tree.Has(child) && missing == nil {
				id := child
				missing = &id
			}
		}
	})

	if missing != nil {
		return encodingErr(fmt.Errorf("child %s referenced but not present", *missing))
	}
	if reachable != len(tree.Nodes) {
		return encodingErr(fmt.Errorf(
			"%d nodes unreachable from root", len(tree.Nodes)-reachable,
		))
	}
	return nil
}
