package snapshot

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reconciliation pipeline. Callers branch on these
// with errors.Is; wrapping preserves the transport detail.
var (
	// ErrProviderUnavailable marks a transient provider failure. The
	// snapshot stays listed, so the next cycle retries automatically.
	ErrProviderUnavailable = errors.New("scrape provider unavailable")

	// ErrResultNotFound means the provider no longer holds the payload.
	// Permanent for that snapshot; never retried.
	ErrResultNotFound = errors.New("snapshot result not found")

	// ErrResultNotReady means the provider reported the result as still
	// building (HTTP 202) despite a ready listing. Skipped this cycle.
	ErrResultNotReady = errors.New("snapshot result not ready")

	// ErrNoMatchingRecord means no bookmark matched the source URL.
	// Non-fatal: expected under backend timing skew.
	ErrNoMatchingRecord = errors.New("no matching record for source url")

	// ErrStoreFailed marks a record store failure. The update was not
	// applied; the snapshot is retried only if the provider keeps listing
	// it as ready.
	ErrStoreFailed = errors.New("record store update failed")
)

// UnsupportedSourceKindError reports a snapshot whose source kind has no
// registered extractor. This is a configuration defect, not an extraction
// failure, and should alert rather than be silently skipped.
type UnsupportedSourceKindError struct {
	Kind SourceKind
	URL  string
}

func (e *UnsupportedSourceKindError) Error() string {
	return fmt.Sprintf("unsupported source kind %q for url %s", e.Kind, e.URL)
}

// MalformedPayloadError reports a payload that fails shape validation for
// its source kind. Treated as permanent for the snapshot.
type MalformedPayloadError struct {
	Kind   SourceKind
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %s", e.Kind, e.Reason)
}
