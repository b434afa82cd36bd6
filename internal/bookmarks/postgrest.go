package bookmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

// PostgRESTConfig captures the parameters for the Supabase REST store.
type PostgRESTConfig struct {
	// BaseURL overrides the derived Supabase URL, mainly for tests.
	BaseURL        string
	ProjectRef     string
	ServiceRoleKey string
	Table          string
	Timeout        time.Duration
}

// PostgRESTStore reconciles bookmarks through the Supabase PostgREST API.
type PostgRESTStore struct {
	httpClient *http.Client
	baseURL    string
	key        string
	table      string
	logger     *zap.Logger
}

// NewPostgRESTStore constructs a store against a Supabase project.
func NewPostgRESTStore(cfg PostgRESTConfig, logger *zap.Logger) (*PostgRESTStore, error) {
	if cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("service role key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.ProjectRef == "" {
			return nil, fmt.Errorf("project ref is required")
		}
		baseURL = fmt.Sprintf("https://%s.supabase.co/rest/v1", cfg.ProjectRef)
	}
	table := cfg.Table
	if table == "" {
		table = "bookmarks"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgRESTStore{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		key:        cfg.ServiceRoleKey,
		table:      table,
		logger:     logger,
	}, nil
}

type bookmarkRow struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	SnapshotID *string `json:"snapshot_id"`
}

// FindByURL resolves a bookmark by exact URL match. When several rows share
// the URL the most recently created one wins.
func (s *PostgRESTStore) FindByURL(ctx context.Context, rawURL string) (snapshot.Bookmark, error) {
	params := url.Values{}
	params.Set("url", "eq."+rawURL)
	params.Set("select", "id,url,snapshot_id")
	params.Set("order", "created_at.desc")
	params.Set("limit", "1")

	body, err := s.do(ctx, http.MethodGet, s.tableURL()+"?"+params.Encode(), nil)
	if err != nil {
		return snapshot.Bookmark{}, err
	}

	var rows []bookmarkRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return snapshot.Bookmark{}, fmt.Errorf("decode bookmark rows: %w: %v", snapshot.ErrStoreFailed, err)
	}
	if len(rows) == 0 {
		return snapshot.Bookmark{}, fmt.Errorf("url %s: %w", rawURL, snapshot.ErrNoMatchingRecord)
	}

	row := rows[0]
	b := snapshot.Bookmark{ID: row.ID, URL: row.URL}
	if row.SnapshotID != nil {
		b.SnapshotID = *row.SnapshotID
	}
	return b, nil
}

// ApplyUpdate PATCHes the sparse field set onto one row. A single request
// keeps the update atomic on the PostgREST side.
func (s *PostgRESTStore) ApplyUpdate(ctx context.Context, id string, update snapshot.BookmarkUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	payload := make(map[string]any)
	for _, f := range updateFields(update) {
		payload[f.column] = f.value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	params := url.Values{}
	params.Set("id", "eq."+id)
	respBody, err := s.do(ctx, http.MethodPatch, s.tableURL()+"?"+params.Encode(), body)
	if err != nil {
		return fmt.Errorf("update bookmark %s: %w", id, err)
	}
	// Prefer: return=representation means a PATCH matching no rows still
	// returns 200, just with an empty array.
	var updated []json.RawMessage
	if err := json.Unmarshal(respBody, &updated); err == nil && len(updated) == 0 {
		return fmt.Errorf("bookmark %s: %w", id, snapshot.ErrNoMatchingRecord)
	}
	s.logger.Debug("bookmark updated", zap.String("bookmark_id", id), zap.Int("fields", len(payload)))
	return nil
}

func (s *PostgRESTStore) tableURL() string {
	return s.baseURL + "/" + s.table
}

func (s *PostgRESTStore) do(ctx context.Context, method, reqURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build postgrest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postgrest %s: %w: %v", method, snapshot.ErrStoreFailed, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn("close postgrest response body", zap.Error(cerr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read postgrest response: %w: %v", snapshot.ErrStoreFailed, err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return respBody, nil
	default:
		return nil, fmt.Errorf("postgrest status %d: %s: %w", resp.StatusCode, respBody, snapshot.ErrStoreFailed)
	}
}
