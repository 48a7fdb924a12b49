package merkle

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
	"github.com/adalundhe/quill/core/normalize"
)

// =============================================================================
// Config
// =============================================================================

// Config configures a Builder. The zero value selects BLAKE3 with the
// default normalization policy and no digest cache.
type Config struct {
	// Algorithm selects the digest algorithm. Defaults to BLAKE3.
	Algorithm digest.Algorithm

	// Normalization selects the canonicalization policy applied before
	// hashing. The zero policy disables normalization entirely; use
	// normalize.DefaultPolicy() for the standard policy.
	Normalization normalize.Policy

	// DigestCacheSize, when positive, enables an LRU cache of own
	// digests keyed by normalized text, so full rebuilds of a mostly
	// unchanged document skip rehashing unchanged block text.
	DigestCacheSize int

	// Hasher overrides the hasher constructed from Algorithm, for
	// instrumentation such as digest.CountingHasher. Its algorithm must
	// match Algorithm.
	Hasher digest.Hasher
}

// =============================================================================
// Builder
// =============================================================================

// Builder constructs hybrid merkle trees from ordered block sequences
// and recomputes them after partial edits. Safe for reuse across builds
// of the same document; the digest cache carries over between builds.
type Builder struct {
	hasher   digest.Hasher
	norm     *normalize.Normalizer
	sentinel digest.Digest
	cache    *lru.Cache[string, digest.Digest]
}

// NewBuilder creates a Builder from the given configuration.
func NewBuilder(cfg Config) (*Builder, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		var err error
		hasher, err = digest.New(cfg.Algorithm)
		if err != nil {
			return nil, err
		}
	} else if hasher.Algorithm() != cfg.Algorithm {
		return nil, &digest.AlgorithmMismatchError{
			Left:  cfg.Algorithm,
			Right: hasher.Algorithm(),
		}
	}

	sentinel, err := digest.EmptyChildrenSentinel(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	builder := &Builder{
		hasher:   hasher,
		norm:     normalize.New(cfg.Normalization),
		sentinel: sentinel,
	}

	if cfg.DigestCacheSize > 0 {
		cache, err := lru.New[string, digest.Digest](cfg.DigestCacheSize)
		if err != nil {
			return nil, fmt.Errorf("merkle: digest cache: %w", err)
		}
		builder.cache = cache
	}

	return builder, nil
}

// Algorithm returns the digest algorithm the builder hashes under.
func (b *Builder) Algorithm() digest.Algorithm {
	return b.hasher.Algorithm()
}

// =============================================================================
// Build
// =============================================================================

// Build constructs a tree from an ordered block sequence. The sequence
// must form a single rooted tree: exactly one parentless block, every
// parent present, no duplicate anchors, no cycles. Violations surface
// as StructuralError — the builder never attempts partial recovery.
func (b *Builder) Build(blocks []block.Block) (*Tree, error) {
	if err := validateStructure(blocks); err != nil {
		return nil, err
	}

	tree := &Tree{
		Algorithm: b.Algorithm(),
		Nodes:     make(map[block.ID]*Node, len(blocks)),
	}

	for i := range blocks {
		blk := &blocks[i]
		node := &Node{
			ID:            blk.ID,
			Kind:          blk.Kind,
			Parent:        blk.Parent,
			Depth:         blk.Depth,
			OrderInParent: blk.OrderInParent,
			OwnDigest:     b.ownDigest(blk),
		}
		tree.Nodes[node.ID] = node
		if blk.IsRoot() {
			tree.Root = node.ID
		}
	}

	b.linkChildren(tree)
	b.computeSubtreeDigests(tree)

	return tree, nil
}

// linkChildren populates each node's ordered child sequence. Children
// are consumed in OrderInParent sequence and never re-sorted by
// content: reordering is a real edit and must be observable.
func (b *Builder) linkChildren(tree *Tree) {
	for _, node := range tree.Nodes {
		if node.Parent != nil {
			parent := tree.Nodes[*node.Parent]
			parent.Children = append(parent.Children, node.ID)
		}
	}

	for _, node := range tree.Nodes {
		children := node.Children
		sort.Slice(children, func(i, j int) bool {
			return tree.Nodes[children[i]].OrderInParent < tree.Nodes[children[j]].OrderInParent
		})
	}
}

// computeSubtreeDigests finalizes subtree digests bottom-up: strictly
// by decreasing depth, then by parent and order for determinism at
// equal depth. Children are always finalized before their parent.
func (b *Builder) computeSubtreeDigests(tree *Tree) {
	order := make([]*Node, 0, len(tree.Nodes))
	for _, node := range tree.Nodes {
		order = append(order, node)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Depth != order[j].Depth {
			return order[i].Depth > order[j].Depth
		}
		pi, pj := parentAnchor(order[i]), parentAnchor(order[j])
		if pi != pj {
			return pi < pj
		}
		return order[i].OrderInParent < order[j].OrderInParent
	})

	for _, node := range order {
		node.SubtreeDigest = b.combine(tree, node)
	}
}

// parentAnchor returns the node's parent anchor, empty for the root.
func parentAnchor(n *Node) block.ID {
	if n.Parent == nil {
		return ""
	}
	return *n.Parent
}

// combine computes a node's subtree digest from its own digest and its
// children's already-finalized subtree digests, in child order. An
// empty child sequence contributes the per-algorithm sentinel.
func (b *Builder) combine(tree *Tree, node *Node) digest.Digest {
	buf := make([]byte, 0, digest.Size*(len(node.Children)+2))
	buf = append(buf, node.OwnDigest.Sum[:]...)

	if len(node.Children) == 0 {
		buf = append(buf, b.sentinel.Sum[:]...)
	} else {
		for _, child := range node.Children {
			buf = append(buf, tree.Nodes[child].SubtreeDigest.Sum[:]...)
		}
	}

	return b.hasher.Sum(buf)
}

// ownDigest hashes a block's canonicalized text, consulting the digest
// cache when enabled. Blocks arriving with NormalizedText already set
// are trusted; otherwise the builder normalizes RawText itself.
func (b *Builder) ownDigest(blk *block.Block) digest.Digest {
	text := blk.NormalizedText
	if text == "" {
		text = b.norm.Normalize(blk.RawText)
	}
	return b.digestText(text)
}

// digestText hashes normalized text through the cache.
func (b *Builder) digestText(text string) digest.Digest {
	if b.cache != nil {
		if d, ok := b.cache.Get(text); ok {
			return d
		}
	}

	d := b.hasher.Sum([]byte(text))

	if b.cache != nil {
		b.cache.Add(text, d)
	}
	return d
}

// =============================================================================
// Structure Validation
// =============================================================================

// validateStructure enforces the rooted-forest input invariant.
func validateStructure(blocks []block.Block) error {
	if len(blocks) == 0 {
		return structuralErr(ReasonEmptyInput, "")
	}

	index := make(map[block.ID]*block.Block, len(blocks))
	var root block.ID

	for i := range blocks {
		blk := &blocks[i]
		if _, seen := index[blk.ID]; seen {
			return structuralErr(ReasonDuplicateID, blk.ID)
		}
		index[blk.ID] = blk

		if blk.IsRoot() {
			if !root.IsZero() {
				return structuralErr(ReasonMultipleRoots, blk.ID)
			}
			root = blk.ID
		}
	}

	if root.IsZero() {
		return structuralErr(ReasonNoRoot, "")
	}

	if err := validateParentLinks(blocks, index, root); err != nil {
		return err
	}
	return validateSiblingOrder(blocks)
}

// validateParentLinks checks parent presence, depth consistency, and
// acyclicity of every parent chain.
func validateParentLinks(blocks []block.Block, index map[block.ID]*block.Block, root block.ID) error {
	// reachesRoot memoizes parent-chain resolution across blocks.
	reachesRoot := map[block.ID]bool{root: true}

	for i := range blocks {
		blk := &blocks[i]
		if blk.IsRoot() {
			if blk.Depth != 0 {
				return structuralErr(ReasonDepthMismatch, blk.ID)
			}
			continue
		}

		parent, ok := index[*blk.Parent]
		if !ok {
			return structuralErr(ReasonDanglingParent, blk.ID)
		}
		if blk.Depth != parent.Depth+1 {
			return structuralErr(ReasonDepthMismatch, blk.ID)
		}

		if err := walkToRoot(blk, index, reachesRoot); err != nil {
			return err
		}
	}

	return nil
}

// walkToRoot follows a block's parent chain until it hits a block known
// to reach the root, marking the whole chain as resolved. A revisit of
// an anchor within one walk is a cycle.
func walkToRoot(blk *block.Block, index map[block.ID]*block.Block, reachesRoot map[block.ID]bool) error {
	visited := make(map[block.ID]bool)
	chain := make([]block.ID, 0, 8)

	current := blk
	for !reachesRoot[current.ID] {
		if visited[current.ID] {
			return structuralErr(ReasonCycle, current.ID)
		}
		visited[current.ID] = true
		chain = append(chain, current.ID)

		if current.Parent == nil {
			break
		}
		next, ok := index[*current.Parent]
		if !ok {
			// Dangling link further up the chain; reported when the
			// per-block pass reaches that ancestor.
			break
		}
		current = next
	}

	for _, id := range chain {
		reachesRoot[id] = true
	}
	return nil
}

// validateSiblingOrder rejects duplicate OrderInParent values among
// siblings, which would make child ordering ambiguous.
func validateSiblingOrder(blocks []block.Block) error {
	seen := make(map[block.ID]map[int]bool)

	for i := range blocks {
		blk := &blocks[i]
		if blk.IsRoot() {
			continue
		}

		orders := seen[*blk.Parent]
		if orders == nil {
			orders = make(map[int]bool)
			seen[*blk.Parent] = orders
		}
		if orders[blk.OrderInParent] {
			return structuralErr(ReasonDuplicateOrder, blk.ID)
		}
		orders[blk.OrderInParent] = true
	}

	return nil
}
