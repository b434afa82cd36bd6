// Package snapshot defines core types shared across subsystems.
package snapshot

import (
	"strings"
	"time"
)

// Status represents the provider-side lifecycle state of a snapshot.
type Status string

// Status values as reported by the provider. The provider is authoritative;
// this service only observes them through polling.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// SourceKind selects which extraction logic applies to a snapshot's payload.
// It is a closed set: adding a source means adding a constant here and an
// extractor case, both checked at compile time.
type SourceKind int

const (
	KindUnknown SourceKind = iota
	KindX
	KindLinkedIn
)

// String returns the wire tag for the source kind.
func (k SourceKind) String() string {
	switch k {
	case KindX:
		return "x"
	case KindLinkedIn:
		return "linkedin"
	default:
		return "unknown"
	}
}

// KindForURL derives the source kind from the originating URL. The kind
// comes from the request context, never from the result payload.
func KindForURL(rawURL string) SourceKind {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "linkedin.com"):
		return KindLinkedIn
	case strings.Contains(lower, "x.com"), strings.Contains(lower, "twitter.com"):
		return KindX
	default:
		return KindUnknown
	}
}

// Snapshot is a provider-side asynchronous job handle for one scrape request.
type Snapshot struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	SourceKind SourceKind `json:"source_kind"`
	SourceURL  string     `json:"source_url"`
}

// MediaType tags a media reference as an image or a video.
type MediaType string

// Media type values.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaRef is one media entry extracted from a payload.
type MediaRef struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// Profile holds social-profile metadata when the source kind provides it.
type Profile struct {
	Name      string `json:"name,omitempty"`
	Handle    string `json:"handle,omitempty"`
	Followers int64  `json:"followers,omitempty"`
}

// ExtractionResult is the normalized, in-memory view of a snapshot payload.
// It is applied to a record in a single atomic update or not at all.
type ExtractionResult struct {
	Text    string
	Media   []MediaRef
	Profile *Profile
}

// FirstMedia returns the first media entry of the given type, if any.
func (r ExtractionResult) FirstMedia(t MediaType) (MediaRef, bool) {
	for _, m := range r.Media {
		if m.Type == t {
			return m, true
		}
	}
	return MediaRef{}, false
}

// Bookmark is the backend-owned record this service reconciles against.
// Only the fields the pipeline reads are modeled here.
type Bookmark struct {
	ID         string
	URL        string
	SnapshotID string
}

// BookmarkUpdate is a sparse field set applied to a bookmark. Nil fields are
// left untouched by the store. ClearSnapshotID nulls the consumed snapshot
// reference so the record stops surfacing as pending.
type BookmarkUpdate struct {
	Description       *string
	PreviewImageURL   *string
	PreviewVideoURL   *string
	SocialProfileName *string
	ScrapeError       *string
	ClearSnapshotID   bool
}

// IsEmpty reports whether the update would touch nothing.
func (u BookmarkUpdate) IsEmpty() bool {
	return u.Description == nil &&
		u.PreviewImageURL == nil &&
		u.PreviewVideoURL == nil &&
		u.SocialProfileName == nil &&
		u.ScrapeError == nil &&
		!u.ClearSnapshotID
}

// Outcome classifies the result of processing one ready snapshot.
type Outcome string

// Outcome values recorded in the cycle report.
const (
	OutcomeUpdated          Outcome = "updated"
	OutcomeErrorRecorded    Outcome = "error_recorded"
	OutcomeNoMatchingRecord Outcome = "no_matching_record"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeStoreFailed      Outcome = "store_failed"
	OutcomeUnsupportedKind  Outcome = "unsupported_kind"
	OutcomeFetchFailed      Outcome = "fetch_failed"
)

// CycleReport tallies one poll iteration. It is ephemeral: exposed through
// the ops API and metrics, never persisted.
type CycleReport struct {
	Started   time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
	Seen      int               `json:"seen"`
	Skipped   int               `json:"skipped"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outcomes  map[Outcome]int   `json:"outcomes,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// NewCycleReport returns a report with allocated tallies.
func NewCycleReport(started time.Time) CycleReport {
	return CycleReport{
		Started:  started,
		Outcomes: make(map[Outcome]int),
		Errors:   make(map[string]string),
	}
}

// Record tallies one processed snapshot's outcome. Updated and ErrorRecorded
// count as success; everything else counts as failure.
func (r *CycleReport) Record(id string, outcome Outcome, err error) {
	r.Outcomes[outcome]++
	switch outcome {
	case OutcomeUpdated, OutcomeErrorRecorded:
		r.Succeeded++
	default:
		r.Failed++
		if err != nil {
			r.Errors[id] = err.Error()
		}
	}
}
