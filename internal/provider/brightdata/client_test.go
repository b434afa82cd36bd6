package brightdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL: server.URL,
		Token:   "test-token",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNew_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestListSnapshots_DecodesAndClassifies(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/snapshots", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "s1", "status": "ready", "url": "https://x.com/u/status/9"},
			{"id": "s2", "status": "building", "input": [{"url": "https://www.linkedin.com/posts/p"}]},
			{"id": "s3", "status": "failed", "url": "https://example.com/page"},
			{"id": "s4", "status": "scheduled", "url": "https://twitter.com/u/status/7"}
		]`))
	})

	snaps, err := client.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 4)

	require.Equal(t, snapshot.Snapshot{
		ID:         "s1",
		Status:     snapshot.StatusReady,
		SourceKind: snapshot.KindX,
		SourceURL:  "https://x.com/u/status/9",
	}, snaps[0])

	require.Equal(t, snapshot.StatusRunning, snaps[1].Status)
	require.Equal(t, snapshot.KindLinkedIn, snaps[1].SourceKind)
	require.Equal(t, "https://www.linkedin.com/posts/p", snaps[1].SourceURL)

	require.Equal(t, snapshot.StatusFailed, snaps[2].Status)
	require.Equal(t, snapshot.KindUnknown, snaps[2].SourceKind)

	require.Equal(t, snapshot.StatusPending, snaps[3].Status)
}

func TestListSnapshots_EmptyListIsNotAnError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	snaps, err := client.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Empty(t, snaps)
}

func TestListSnapshots_ServerErrorIsProviderUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListSnapshots(context.Background())
	require.ErrorIs(t, err, snapshot.ErrProviderUnavailable)
}

func TestFetchResult_ReturnsBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/snapshot/s1", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[{"text": "hello"}]`))
	})

	body, err := client.FetchResult(context.Background(), "s1")
	require.NoError(t, err)
	require.JSONEq(t, `[{"text": "hello"}]`, string(body))
}

func TestFetchResult_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"still building", http.StatusAccepted, snapshot.ErrResultNotReady},
		{"payload gone", http.StatusNotFound, snapshot.ErrResultNotFound},
		{"server error", http.StatusInternalServerError, snapshot.ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := client.FetchResult(context.Background(), "s1")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFetchResult_TransportErrorIsProviderUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := New(Config{BaseURL: server.URL, Token: "tok"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.FetchResult(context.Background(), "s1")
	require.ErrorIs(t, err, snapshot.ErrProviderUnavailable)
}
