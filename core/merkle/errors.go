package merkle

import (
	"errors"
	"fmt"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/digest"
)

// algorithmMismatch builds the typed cross-algorithm error.
func algorithmMismatch(left, right digest.Algorithm) error {
	return &digest.AlgorithmMismatchError{Left: left, Right: right}
}

// =============================================================================
// Structural Errors
// =============================================================================

// ErrStructural is the sentinel for all rooted-forest invariant
// violations in a block sequence. These indicate a parser bug, not a
// transient condition: the build attempt fails fast and is not retried.
var ErrStructural = errors.New("merkle: invalid block structure")

// Structural violation reasons.
const (
	ReasonEmptyInput     = "empty block sequence"
	ReasonNoRoot         = "no root block"
	ReasonMultipleRoots  = "multiple root blocks"
	ReasonDuplicateID    = "duplicate block id"
	ReasonDanglingParent = "parent not present in sequence"
	ReasonCycle          = "parent chain forms a cycle"
	ReasonDepthMismatch  = "depth inconsistent with parent"
	ReasonDuplicateOrder = "duplicate order within parent"
	ReasonUnknownBlock   = "block not present in tree"
)

// StructuralError reports which invariant a block sequence violated and,
// when known, the offending anchor.
type StructuralError struct {
	Reason string
	ID     block.ID
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("merkle: invalid block structure: %s", e.Reason)
	}
	return fmt.Sprintf("merkle: invalid block structure: %s (block %s)", e.Reason, e.ID)
}

// Is reports whether target is ErrStructural.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// structuralErr builds a StructuralError.
func structuralErr(reason string, id block.ID) error {
	return &StructuralError{Reason: reason, ID: id}
}

// =============================================================================
// Encoding Errors
// =============================================================================

// ErrEncoding is the sentinel for malformed persisted tree data. The
// storage collaborator decides whether to treat the document as
// never-before-seen or abort.
var ErrEncoding = errors.New("merkle: malformed tree encoding")

// EncodingError wraps the cause of a serialization boundary failure.
type EncodingError struct {
	Cause error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("merkle: malformed tree encoding: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// encodingErr wraps cause in an EncodingError.
func encodingErr(cause error) error {
	return &EncodingError{Cause: cause}
}

// =============================================================================
// Verification Errors
// =============================================================================

// ErrIntegrity is the sentinel for a tree that fails self-verification.
var ErrIntegrity = errors.New("merkle: tree integrity violation")

// IntegrityError reports a digest or linkage inconsistency found by
// VerifyIntegrity.
type IntegrityError struct {
	Detail string
	ID     block.ID
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("merkle: tree integrity violation: %s", e.Detail)
	}
	return fmt.Sprintf("merkle: tree integrity violation: %s (block %s)", e.Detail, e.ID)
}

// Is reports whether target is ErrIntegrity.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
