package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKindForURL(t *testing.T) {
	t.Parallel()

	cases := map[string]SourceKind{
		"https://www.linkedin.com/posts/abc": KindLinkedIn,
		"https://x.com/user/status/1":        KindX,
		"https://twitter.com/user/status/1":  KindX,
		"https://example.com/blog/post":      KindUnknown,
		"":                                   KindUnknown,
	}
	for url, want := range cases {
		require.Equal(t, want, KindForURL(url), url)
	}
}

func TestCycleReport_RecordTallies(t *testing.T) {
	t.Parallel()

	report := NewCycleReport(time.Unix(100, 0))
	report.Record("s1", OutcomeUpdated, nil)
	report.Record("s2", OutcomeErrorRecorded, nil)
	report.Record("s3", OutcomeExtractionFailed, errors.New("bad payload"))
	report.Record("s4", OutcomeStoreFailed, errors.New("db down"))

	require.Equal(t, 2, report.Succeeded)
	require.Equal(t, 2, report.Failed)
	require.Equal(t, 1, report.Outcomes[OutcomeUpdated])
	require.Equal(t, 1, report.Outcomes[OutcomeExtractionFailed])
	require.Equal(t, "bad payload", report.Errors["s3"])
	require.NotContains(t, report.Errors, "s1")
}

func TestExtractionResult_FirstMedia(t *testing.T) {
	t.Parallel()

	result := ExtractionResult{Media: []MediaRef{
		{URL: "v.mp4", Type: MediaVideo},
		{URL: "a.jpg", Type: MediaImage},
		{URL: "b.jpg", Type: MediaImage},
	}}

	img, ok := result.FirstMedia(MediaImage)
	require.True(t, ok)
	require.Equal(t, "a.jpg", img.URL)

	vid, ok := result.FirstMedia(MediaVideo)
	require.True(t, ok)
	require.Equal(t, "v.mp4", vid.URL)

	_, ok = ExtractionResult{}.FirstMedia(MediaImage)
	require.False(t, ok)
}

func TestBookmarkUpdate_IsEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, BookmarkUpdate{}.IsEmpty())
	require.False(t, BookmarkUpdate{ClearSnapshotID: true}.IsEmpty())

	text := "t"
	require.False(t, BookmarkUpdate{Description: &text}.IsEmpty())
}
