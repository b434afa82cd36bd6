package snapshot

import "context"

// Provider lists outstanding snapshots and downloads ready results.
type Provider interface {
	// ListSnapshots returns every outstanding snapshot. An empty slice is
	// not an error; transport and 5xx failures wrap ErrProviderUnavailable.
	ListSnapshots(ctx context.Context) ([]Snapshot, error)

	// FetchResult downloads the raw payload for a ready snapshot. It wraps
	// ErrResultNotReady while the provider is still building the result,
	// ErrResultNotFound when the payload is gone, and
	// ErrProviderUnavailable on transport failures.
	FetchResult(ctx context.Context, id string) ([]byte, error)
}

// Store reads and updates bookmark records in the backend.
type Store interface {
	// FindByURL resolves a bookmark by exact source URL. When more than one
	// record shares the URL the most recently created wins. Wraps
	// ErrNoMatchingRecord when nothing matches.
	FindByURL(ctx context.Context, url string) (Bookmark, error)

	// ApplyUpdate applies a sparse field update to one bookmark in a single
	// atomic call. Fields absent from the update are left untouched.
	ApplyUpdate(ctx context.Context, id string, update BookmarkUpdate) error
}

// Archiver persists raw payload blobs for audit and returns their URI.
type Archiver interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
