package block

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// fingerprintSize is the anchor fingerprint length in bytes. SHAKE-128
// output is read to this length and hex-encoded to form an ID.
const fingerprintSize = 16

// anchorSeparator keeps fingerprint input components from colliding
// across field boundaries.
const anchorSeparator = byte(0x1f)

// ID is a stable, content-independent identifier for a block: a
// structural anchor derived from the parent's anchor, the block's kind,
// and a disambiguation ordinal among same-kind siblings under that
// parent. Editing a block in place keeps its ID; only structural
// rearrangement around it can change it. Because the anchor encodes
// parent identity rather than global position, insertions elsewhere in
// the tree never churn unrelated IDs.
type ID string

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// RootID derives the anchor for a document root from a caller-chosen
// document key. The key only needs to be stable for the document's
// lifetime; the engine never interprets it.
func RootID(docKey string) ID {
	return fingerprint(nil, []byte("quill:root"), []byte(docKey))
}

// ChildID derives the anchor for a child block from its parent's anchor,
// its kind, and its disambiguation ordinal among same-kind siblings
// under that parent (0 for the first heading child, 1 for the second,
// and so on). The ordinal is per-kind so that inserting a sibling of a
// different kind does not shift identities.
func ChildID(parent ID, kind Kind, ordinal int) ID {
	var ord [8]byte
	binary.BigEndian.PutUint64(ord[:], uint64(ordinal))
	return fingerprint([]byte(parent), []byte(kind.String()), ord[:])
}

// fingerprint derives an ID from the given components using SHAKE-128.
func fingerprint(components ...[]byte) ID {
	shake := sha3.NewShake128()
	for i, component := range components {
		if i > 0 {
			shake.Write([]byte{anchorSeparator})
		}
		shake.Write(component)
	}

	var out [fingerprintSize]byte
	shake.Read(out[:])
	return ID(hex.EncodeToString(out[:]))
}
