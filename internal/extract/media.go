package extract

import "github.com/sharevia/snapshotd/internal/snapshot"

// dedupeMedia drops exact-duplicate URLs while preserving the provider's
// ordering of the remaining entries.
func dedupeMedia(refs []snapshot.MediaRef) []snapshot.MediaRef {
	if len(refs) < 2 {
		return refs
	}
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if _, dup := seen[ref.URL]; dup {
			continue
		}
		seen[ref.URL] = struct{}{}
		out = append(out, ref)
	}
	return out
}
