// Package quill is an incremental merkle hashing and diff engine for
// block-structured documents. A caller-supplied parser decomposes each
// document into typed blocks; quill builds a digest tree over them,
// detects which blocks changed between scans, and publishes each
// version behind a snapshot registry so readers are never exposed to a
// half-updated tree.
//
// The Engine type ties the pieces together for the common
// scan-diff-publish cycle. The underlying packages remain usable on
// their own: core/merkle for building and recomputing trees, core/diff
// for comparing them, core/snapshot for versioned publication.
package quill

import (
	"errors"

	"github.com/google/uuid"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/diff"
	"github.com/adalundhe/quill/core/digest"
	"github.com/adalundhe/quill/core/merkle"
	"github.com/adalundhe/quill/core/normalize"
	"github.com/adalundhe/quill/core/snapshot"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures an Engine. The zero value selects BLAKE3 and the
// default normalization policy.
type Config struct {
	// Algorithm selects the digest algorithm for every tree the
	// engine builds.
	Algorithm digest.Algorithm

	// Normalization is applied to block text before hashing.
	Normalization normalize.Policy

	// DigestCacheSize bounds the builder's memoized text digests.
	// Zero disables the cache.
	DigestCacheSize int

	// DetectMoves enables relocation pairing in scan diffs.
	DetectMoves bool

	// ProbeCache configures the registry's probe memoization.
	ProbeCache snapshot.ProbeCacheConfig
}

// =============================================================================
// Engine
// =============================================================================

// Engine orchestrates the scan cycle: build a tree from parsed blocks,
// diff it against the document's current version, and publish it. All
// operations are safe for concurrent use.
type Engine struct {
	builder  *merkle.Builder
	registry *snapshot.Registry
	diffOpts diff.Options
}

// ScanResult reports the outcome of one scan.
type ScanResult struct {
	// Document identifies the scanned document.
	Document uuid.UUID

	// Version is the version now current for the document: the newly
	// published one, or the existing one when the scan was a no-op.
	Version *snapshot.Version

	// Diff describes what changed relative to the previous version.
	Diff *diff.TreeDiff

	// Published is false when the scan produced an identical root
	// digest and nothing was published.
	Published bool
}

// New creates an Engine.
func New(config Config) (*Engine, error) {
	if config.Normalization == (normalize.Policy{}) {
		config.Normalization = normalize.DefaultPolicy()
	}

	builder, err := merkle.NewBuilder(merkle.Config{
		Algorithm:       config.Algorithm,
		Normalization:   config.Normalization,
		DigestCacheSize: config.DigestCacheSize,
	})
	if err != nil {
		return nil, err
	}

	registry, err := snapshot.NewRegistry(snapshot.RegistryConfig{
		ProbeCache: config.ProbeCache,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		builder:  builder,
		registry: registry,
		diffOpts: diff.Options{DetectMoves: config.DetectMoves},
	}, nil
}

// Track builds a document's first tree and registers it, returning
// the identity for later scans.
func (e *Engine) Track(blocks []block.Block) (uuid.UUID, *snapshot.Version, error) {
	tree, err := e.builder.Build(blocks)
	if err != nil {
		return uuid.Nil, nil, err
	}

	handle, err := e.registry.Track(tree)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return handle.Document(), handle.Current(), nil
}

// Rescan rebuilds a document's tree from a fresh block sequence,
// diffs it against the current version, and publishes it. When the
// root digests match nothing is published and the result carries the
// existing version with an empty diff. A concurrent publish between
// the read and the swap surfaces as a StaleWriteError; the caller
// rescans against the new current version.
func (e *Engine) Rescan(doc uuid.UUID, blocks []block.Block) (*ScanResult, error) {
	handle, ok := e.registry.Lookup(doc)
	if !ok {
		return nil, &snapshot.UnknownDocumentError{Document: doc}
	}

	tree, err := e.builder.Build(blocks)
	if err != nil {
		return nil, err
	}

	cur := handle.Current()
	changes, err := diff.DiffWithOptions(cur.Tree, tree, e.diffOpts)
	if err != nil {
		return nil, err
	}

	if changes.UnchangedRoot {
		return &ScanResult{
			Document:  doc,
			Version:   cur,
			Diff:      changes,
			Published: false,
		}, nil
	}

	version, err := e.registry.Publish(doc, cur.Seq, tree)
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		Document:  doc,
		Version:   version,
		Diff:      changes,
		Published: true,
	}, nil
}

// Edit applies a single-block text change through the O(depth)
// recompute path and publishes the result. Lost publish races retry
// against the new current version; the rebuild per attempt touches
// only the edited block's ancestor chain, so retries stay cheap.
func (e *Engine) Edit(doc uuid.UUID, id block.ID, newText string) (*snapshot.Version, error) {
	handle, ok := e.registry.Lookup(doc)
	if !ok {
		return nil, &snapshot.UnknownDocumentError{Document: doc}
	}

	for {
		cur := handle.Current()
		tree, err := e.builder.RecomputePath(cur.Tree, id, newText)
		if err != nil {
			return nil, err
		}

		version, err := e.registry.Publish(doc, cur.Seq, tree)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, snapshot.ErrStaleWrite) {
			return nil, err
		}
	}
}

// Current returns the document's current version.
func (e *Engine) Current(doc uuid.UUID) (*snapshot.Version, error) {
	handle, ok := e.registry.Lookup(doc)
	if !ok {
		return nil, &snapshot.UnknownDocumentError{Document: doc}
	}
	return handle.Current(), nil
}

// Probe returns the document's current sequence and root digest
// without handing out the tree.
func (e *Engine) Probe(doc uuid.UUID) (snapshot.Probe, error) {
	return e.registry.ProbeDocument(doc)
}

// Forget stops tracking a document.
func (e *Engine) Forget(doc uuid.UUID) {
	e.registry.Forget(doc)
}

// Close releases the engine's registry.
func (e *Engine) Close() {
	e.registry.Close()
}
