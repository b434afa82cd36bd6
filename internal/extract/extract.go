// Package extract implements pure per-source-kind payload extraction.
//
// Extractors never touch the network or the record store, so each one is
// testable against fixed payload fixtures.
package extract

import (
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// Extractor turns one raw provider payload item into normalized fields.
type Extractor interface {
	Extract(payload []byte) (snapshot.ExtractionResult, error)
}

// ForKind returns the extractor for a source kind. The switch is closed:
// a snapshot with an unregistered kind is rejected here, before any
// extraction runs.
func ForKind(kind snapshot.SourceKind) (Extractor, error) {
	switch kind {
	case snapshot.KindX:
		return xExtractor{}, nil
	case snapshot.KindLinkedIn:
		return linkedinExtractor{}, nil
	default:
		return nil, &snapshot.UnsupportedSourceKindError{Kind: kind}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
