package snapshot

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

// ErrStaleWrite is the sentinel for rejected publishes. A publish is
// stale when the version it was built against is no longer current;
// the caller must rebuild from the latest version and retry. Expected
// under concurrent rapid edits, not fatal.
var ErrStaleWrite = errors.New("snapshot: stale write")

// ErrUnknownDocument is returned for operations against a document the
// registry is not tracking.
var ErrUnknownDocument = errors.New("snapshot: unknown document")

// ErrRegistryClosed is returned for operations against a closed
// registry.
var ErrRegistryClosed = errors.New("snapshot: registry closed")

// StaleWriteError reports a publish rejected by the version check,
// carrying the base version the writer built against and the version
// that was current at rejection time.
type StaleWriteError struct {
	Base    uint64
	Current uint64
}

// Error implements the error interface.
func (e *StaleWriteError) Error() string {
	return fmt.Sprintf(
		"snapshot: stale write: publish based on version %d but current is %d",
		e.Base, e.Current,
	)
}

// Is reports whether target is ErrStaleWrite.
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

// UnknownDocumentError identifies which document was not found.
type UnknownDocumentError struct {
	Document uuid.UUID
}

// Error implements the error interface.
func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("snapshot: unknown document %s", e.Document)
}

// Is reports whether target is ErrUnknownDocument.
func (e *UnknownDocumentError) Is(target error) bool {
	return target == ErrUnknownDocument
}
