package snapshot

import (
	"sync"

	"github.com/google/uuid"

	"github.com/adalundhe/quill/core/digest"
	"github.com/adalundhe/quill/core/merkle"
)

// =============================================================================
// Probe
// =============================================================================

// Probe is a cheap answer to "has this document changed": the current
// sequence number and root digest, without handing out the tree.
type Probe struct {
	Document uuid.UUID
	Seq      uint64
	Root     digest.Digest
}

// =============================================================================
// Registry
// =============================================================================

// Registry tracks one Handle per live document. Each document's tree
// evolves independently; the registry imposes no cross-document
// ordering. Probe results are memoized in a TTL cache invalidated on
// publish, so pollers asking "did anything change" repeatedly do not
// serialize on the handle map.
type Registry struct {
	mu     sync.RWMutex
	docs   map[uuid.UUID]*Handle
	probe  *probeCache
	closed bool
}

// RegistryConfig configures a Registry. The zero value is usable.
type RegistryConfig struct {
	ProbeCache ProbeCacheConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	probe, err := newProbeCache(config.ProbeCache)
	if err != nil {
		return nil, err
	}
	return &Registry{
		docs:  make(map[uuid.UUID]*Handle),
		probe: probe,
	}, nil
}

// Track registers a document's first built tree and returns its
// handle. The assigned identity is the key for every later operation.
func (r *Registry) Track(tree *merkle.Tree) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	id := uuid.New()
	handle := NewHandle(id, tree)
	r.docs[id] = handle
	return handle, nil
}

// Lookup returns the handle for a tracked document.
func (r *Registry) Lookup(doc uuid.UUID) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.docs[doc]
	return handle, ok
}

// Publish installs tree as the document's next version via the
// handle's version check, then drops the document's memoized probe so
// later probes observe the new version.
func (r *Registry) Publish(doc uuid.UUID, base uint64, tree *merkle.Tree) (*Version, error) {
	handle, ok := r.Lookup(doc)
	if !ok {
		return nil, &UnknownDocumentError{Document: doc}
	}

	version, err := handle.Publish(base, tree)
	if err != nil {
		return nil, err
	}

	r.probe.invalidate(doc.String())
	return version, nil
}

// ProbeDocument returns the document's current sequence number and
// root digest, served from the probe cache when possible.
func (r *Registry) ProbeDocument(doc uuid.UUID) (Probe, error) {
	key := doc.String()
	if probe, ok := r.probe.get(key); ok {
		return probe, nil
	}

	handle, ok := r.Lookup(doc)
	if !ok {
		return Probe{}, &UnknownDocumentError{Document: doc}
	}

	cur := handle.Current()
	probe := Probe{
		Document: doc,
		Seq:      cur.Seq,
		Root:     cur.Tree.RootDigest(),
	}
	r.probe.set(key, probe)
	return probe, nil
}

// Forget stops tracking a document. Readers holding versions keep
// them; only the registry's reference is dropped.
func (r *Registry) Forget(doc uuid.UUID) {
	r.mu.Lock()
	delete(r.docs, doc)
	r.mu.Unlock()

	r.probe.invalidate(doc.String())
}

// Len returns the number of tracked documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// ProbeStats exposes probe cache counters.
func (r *Registry) ProbeStats() *ProbeStats {
	return r.probe.stats
}

// WaitProbes flushes pending probe cache admissions. Intended for
// tests and shutdown paths that need deterministic cache state.
func (r *Registry) WaitProbes() {
	r.probe.wait()
}

// Close drops all tracked documents and releases the probe cache.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.docs = nil
	r.probe.close()
}
