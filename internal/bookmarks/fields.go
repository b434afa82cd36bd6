// Package bookmarks provides record store clients for the bookmarks table,
// one speaking PostgREST (Supabase) and one speaking Postgres directly.
package bookmarks

import "github.com/sharevia/snapshotd/internal/snapshot"

// updateField pairs a column with its new value. Ordering is fixed so both
// store implementations produce deterministic statements.
type updateField struct {
	column string
	value  any
}

// updateFields flattens a sparse update into column/value pairs. Nil update
// fields produce no pair and are therefore left untouched by the store.
func updateFields(u snapshot.BookmarkUpdate) []updateField {
	var fields []updateField
	if u.Description != nil {
		fields = append(fields, updateField{"description", *u.Description})
	}
	if u.PreviewImageURL != nil {
		fields = append(fields, updateField{"preview_image_url", *u.PreviewImageURL})
	}
	if u.PreviewVideoURL != nil {
		fields = append(fields, updateField{"preview_video_url", *u.PreviewVideoURL})
	}
	if u.SocialProfileName != nil {
		fields = append(fields, updateField{"social_profile_name", *u.SocialProfileName})
	}
	if u.ScrapeError != nil {
		fields = append(fields, updateField{"scrape_error", *u.ScrapeError})
	}
	if u.ClearSnapshotID {
		fields = append(fields, updateField{"snapshot_id", nil})
	}
	return fields
}
