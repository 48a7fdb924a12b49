package digest

import "sync/atomic"

// CountingHasher wraps a Hasher and counts Sum invocations. It is the
// engine's instrumentation surface: callers that need to observe hashing
// work (for example to verify recompute locality) inject one instead of
// relying on logging, which the engine never does.
type CountingHasher struct {
	inner Hasher
	count atomic.Uint64
}

// NewCounting wraps the given hasher with an invocation counter.
func NewCounting(inner Hasher) *CountingHasher {
	return &CountingHasher{inner: inner}
}

// Sum digests the given bytes and increments the counter.
func (c *CountingHasher) Sum(data []byte) Digest {
	c.count.Add(1)
	return c.inner.Sum(data)
}

// Algorithm returns the wrapped hasher's algorithm.
func (c *CountingHasher) Algorithm() Algorithm {
	return c.inner.Algorithm()
}

// Count returns the number of Sum calls since creation or the last Reset.
func (c *CountingHasher) Count() uint64 {
	return c.count.Load()
}

// Reset zeroes the counter.
func (c *CountingHasher) Reset() {
	c.count.Store(0)
}
