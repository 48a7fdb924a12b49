// Package snapshot holds published merkle trees behind a
// single-writer, multi-reader discipline. Readers obtain an immutable
// version that stays valid and self-consistent for as long as they
// hold it, even after newer versions are published; publishing is an
// atomic pointer swap guarded by a compare on the version counter, so
// a writer racing against a concurrent publish gets a stale-write
// rejection instead of silently reordering versions.
package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/quill/core/merkle"
)

// =============================================================================
// Version
// =============================================================================

// Version is one published revision of a document's tree. Versions are
// immutable after publish; the tree they carry must never be mutated
// in place.
type Version struct {
	// Seq is the position of this version in the document's total
	// order, starting at 1 for the first scan.
	Seq uint64

	// Tree is the merkle tree published at this version.
	Tree *merkle.Tree

	// PublishedAt records when the version became current.
	PublishedAt time.Time
}

// =============================================================================
// Handle
// =============================================================================

// Handle is the concurrency container for a single tracked document.
// Reads are a single atomic load and never block; writes serialize on
// a mutex held only around the version check and pointer swap.
type Handle struct {
	doc uuid.UUID

	current   atomic.Pointer[Version]
	publishMu sync.Mutex
}

// NewHandle creates a handle whose first version wraps the given tree
// at sequence 1.
func NewHandle(doc uuid.UUID, tree *merkle.Tree) *Handle {
	h := &Handle{doc: doc}
	h.current.Store(&Version{
		Seq:         1,
		Tree:        tree,
		PublishedAt: time.Now(),
	})
	return h
}

// Document returns the identity the handle was tracked under.
func (h *Handle) Document() uuid.UUID {
	return h.doc
}

// Current returns the latest published version. Successive calls on
// one handle observe monotonically non-decreasing sequence numbers.
func (h *Handle) Current() *Version {
	return h.current.Load()
}

// Publish installs tree as the next version, provided the caller built
// it against the version that is still current. A mismatched base
// returns a StaleWriteError and leaves the current version untouched;
// the caller rebuilds from the latest version and retries.
func (h *Handle) Publish(base uint64, tree *merkle.Tree) (*Version, error) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	cur := h.current.Load()
	if cur.Seq != base {
		return nil, &StaleWriteError{Base: base, Current: cur.Seq}
	}

	next := &Version{
		Seq:         base + 1,
		Tree:        tree,
		PublishedAt: time.Now(),
	}
	h.current.Store(next)
	return next, nil
}
