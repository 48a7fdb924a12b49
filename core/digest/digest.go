// Package digest provides the content hashing layer for the quill engine.
// It exposes a closed set of digest algorithms (BLAKE3 by default, SHA-256
// as a widely-interoperable alternative) behind a uniform Hasher interface.
//
// Every Digest carries the algorithm that produced it. Digests from
// different algorithms are never comparable: Equal surfaces a typed
// mismatch error instead of a silent false result.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"lukechampine.com/blake3"
)

// =============================================================================
// Constants
// =============================================================================

// Size is the digest output size in bytes. Both supported algorithms
// produce 32-byte digests.
const Size = 32

// emptyChildrenSentinel is the domain-separation input hashed to produce
// the sentinel digest appended when a node has no children. It is a
// non-empty input, so the sentinel is distinct both from the zero digest
// and from the digest of empty input.
const emptyChildrenSentinel = "quill:empty-children:v1"

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrAlgorithmMismatch indicates two digests with different algorithm
	// tags were compared.
	ErrAlgorithmMismatch = errors.New("digest: algorithm mismatch")

	// ErrUnknownAlgorithm indicates an algorithm outside the supported set.
	ErrUnknownAlgorithm = errors.New("digest: unknown algorithm")
)

// AlgorithmMismatchError reports the two algorithm tags involved in an
// invalid cross-algorithm comparison.
type AlgorithmMismatchError struct {
	Left  Algorithm
	Right Algorithm
}

// Error implements the error interface.
func (e *AlgorithmMismatchError) Error() string {
	return fmt.Sprintf("digest: algorithm mismatch: %s vs %s", e.Left, e.Right)
}

// Is reports whether target is ErrAlgorithmMismatch.
func (e *AlgorithmMismatchError) Is(target error) bool {
	return target == ErrAlgorithmMismatch
}

// =============================================================================
// Algorithm
// =============================================================================

// Algorithm identifies a digest algorithm. The set is intentionally
// closed: digest comparability requires exhaustive tag handling.
type Algorithm uint8

const (
	// BLAKE3 is the default algorithm, chosen for speed.
	BLAKE3 Algorithm = iota

	// SHA256 is the widely-interoperable alternative.
	SHA256
)

// Valid reports whether the algorithm is in the supported set.
func (a Algorithm) Valid() bool {
	return a == BLAKE3 || a == SHA256
}

// String returns the canonical lowercase name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case BLAKE3:
		return "blake3"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm converts a canonical name back to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "blake3":
		return BLAKE3, nil
	case "sha256":
		return SHA256, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// =============================================================================
// Digest
// =============================================================================

// Digest is a fixed-width hash output tagged with the algorithm that
// produced it. A Digest is never constructed from partial input.
type Digest struct {
	Algorithm Algorithm
	Sum       [Size]byte
}

// IsZero reports whether the digest sum is all zeros.
func (d Digest) IsZero() bool {
	for _, b := range d.Sum {
		if b != 0 {
			return false
		}
	}
	return true
}

// String returns the hexadecimal representation of the digest sum.
func (d Digest) String() string {
	return hex.EncodeToString(d.Sum[:])
}

// Equal compares two digests. Comparing digests produced under different
// algorithms is an error, never a silent false result.
func (d Digest) Equal(other Digest) (bool, error) {
	if d.Algorithm != other.Algorithm {
		return false, &AlgorithmMismatchError{Left: d.Algorithm, Right: other.Algorithm}
	}
	return bytes.Equal(d.Sum[:], other.Sum[:]), nil
}

// digestJSON is the wire form of a Digest. The sum is hex-encoded once,
// consistently across writes and reads, so serialization round-trips
// byte-exactly.
type digestJSON struct {
	Algorithm string `json:"algorithm"`
	Sum       string `json:"sum"`
}

// MarshalJSON implements json.Marshaler.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(digestJSON{
		Algorithm: d.Algorithm.String(),
		Sum:       hex.EncodeToString(d.Sum[:]),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var wire digestJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	alg, err := ParseAlgorithm(wire.Algorithm)
	if err != nil {
		return err
	}

	sum, err := hex.DecodeString(wire.Sum)
	if err != nil {
		return fmt.Errorf("digest: invalid sum encoding: %w", err)
	}
	if len(sum) != Size {
		return fmt.Errorf("digest: sum must be %d bytes, got %d", Size, len(sum))
	}

	d.Algorithm = alg
	copy(d.Sum[:], sum)
	return nil
}

// =============================================================================
// Hasher
// =============================================================================

// Hasher computes tagged digests over byte content. Implementations are
// pure and deterministic: identical input yields byte-identical output
// across processes and platforms.
type Hasher interface {
	// Sum digests the given bytes. Hashing empty input is well-defined.
	Sum(data []byte) Digest

	// Algorithm returns the algorithm tag carried by produced digests.
	Algorithm() Algorithm
}

// New returns the Hasher for the given algorithm.
func New(alg Algorithm) (Hasher, error) {
	switch alg {
	case BLAKE3:
		return blake3Hasher{}, nil
	case SHA256:
		return sha256Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(alg))
	}
}

// blake3Hasher computes BLAKE3 digests.
type blake3Hasher struct{}

// Sum implements Hasher.
func (blake3Hasher) Sum(data []byte) Digest {
	return Digest{Algorithm: BLAKE3, Sum: blake3.Sum256(data)}
}

// Algorithm implements Hasher.
func (blake3Hasher) Algorithm() Algorithm {
	return BLAKE3
}

// sha256Hasher computes SHA-256 digests.
type sha256Hasher struct{}

// Sum implements Hasher.
func (sha256Hasher) Sum(data []byte) Digest {
	return Digest{Algorithm: SHA256, Sum: sha256.Sum256(data)}
}

// Algorithm implements Hasher.
func (sha256Hasher) Algorithm() Algorithm {
	return SHA256
}

// =============================================================================
// Sentinels
// =============================================================================

// EmptyChildrenSentinel returns the fixed per-algorithm digest appended
// in place of child digests when a node has no children. It is distinct
// from the zero digest and from the digest of empty input, so an empty
// child sequence can never collide with a leaf whose content hashes to
// either.
func EmptyChildrenSentinel(alg Algorithm) (Digest, error) {
	h, err := New(alg)
	if err != nil {
		return Digest{}, err
	}
	return h.Sum([]byte(emptyChildrenSentinel)), nil
}
