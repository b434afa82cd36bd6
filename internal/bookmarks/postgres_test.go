package bookmarks

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewPostgresStoreWithPool(mock, "bookmarks")
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStoreWithPool_RejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStoreWithPool(mock, "bookmarks; DROP TABLE users")
	require.Error(t, err)
}

func TestPostgresFindByURL(t *testing.T) {
	t.Parallel()

	store, mock := newTestPostgresStore(t)
	mock.ExpectQuery(`SELECT id, url, COALESCE(snapshot_id, '') FROM bookmarks WHERE url = $1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("https://x.com/u/status/1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "snapshot_id"}).
			AddRow("b1", "https://x.com/u/status/1", "s1"))

	b, err := store.FindByURL(context.Background(), "https://x.com/u/status/1")
	require.NoError(t, err)
	require.Equal(t, snapshot.Bookmark{ID: "b1", URL: "https://x.com/u/status/1", SnapshotID: "s1"}, b)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByURL_NoRows(t *testing.T) {
	t.Parallel()

	store, mock := newTestPostgresStore(t)
	mock.ExpectQuery(`SELECT id, url, COALESCE(snapshot_id, '') FROM bookmarks WHERE url = $1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("https://x.com/u/status/404").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "snapshot_id"}))

	_, err := store.FindByURL(context.Background(), "https://x.com/u/status/404")
	require.ErrorIs(t, err, snapshot.ErrNoMatchingRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUpdate(t *testing.T) {
	t.Parallel()

	store, mock := newTestPostgresStore(t)
	mock.ExpectExec(`UPDATE bookmarks SET description = $1, snapshot_id = $2 WHERE id = $3`).
		WithArgs("post text", nil, "b1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	update := snapshot.BookmarkUpdate{
		Description:     strptr("post text"),
		ClearSnapshotID: true,
	}
	require.NoError(t, store.ApplyUpdate(context.Background(), "b1", update))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUpdate_NoRowMatched(t *testing.T) {
	t.Parallel()

	store, mock := newTestPostgresStore(t)
	mock.ExpectExec(`UPDATE bookmarks SET scrape_error = $1 WHERE id = $2`).
		WithArgs("dataset collection failed", "b1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.ApplyUpdate(context.Background(), "b1", snapshot.BookmarkUpdate{
		ScrapeError: strptr("dataset collection failed"),
	})
	require.ErrorIs(t, err, snapshot.ErrNoMatchingRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUpdate_EmptyUpdateIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newTestPostgresStore(t)
	require.NoError(t, store.ApplyUpdate(context.Background(), "b1", snapshot.BookmarkUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}
