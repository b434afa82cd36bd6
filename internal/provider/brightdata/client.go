// Package brightdata implements the scrape provider client.
package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/metrics"
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// DefaultBaseURL is the provider's dataset API root.
const DefaultBaseURL = "https://api.brightdata.com/datasets/v3"

// Config captures the parameters required to reach the provider API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client issues snapshot list and result download requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

// New constructs a Client. The bearer token is required; every outbound
// request carries the configured deadline so a hung provider call cannot
// stall a poll cycle indefinitely.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("provider token is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		logger:     logger,
	}, nil
}

// listedSnapshot mirrors one entry of the provider's snapshot listing. The
// originating URL is echoed either at the top level or inside the trigger
// input, depending on the dataset.
type listedSnapshot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Input  []struct {
		URL string `json:"url"`
	} `json:"input"`
}

// ListSnapshots returns every outstanding snapshot known to the provider.
func (c *Client) ListSnapshots(ctx context.Context) ([]snapshot.Snapshot, error) {
	body, err := c.get(ctx, c.baseURL+"/snapshots", "list")
	if err != nil {
		return nil, err
	}

	var listed []listedSnapshot
	if err := json.Unmarshal(body, &listed); err != nil {
		return nil, fmt.Errorf("decode snapshot listing: %w", err)
	}

	snaps := make([]snapshot.Snapshot, 0, len(listed))
	for _, item := range listed {
		url := item.URL
		if url == "" && len(item.Input) > 0 {
			url = item.Input[0].URL
		}
		snaps = append(snaps, snapshot.Snapshot{
			ID:         item.ID,
			Status:     statusFromWire(item.Status),
			SourceKind: snapshot.KindForURL(url),
			SourceURL:  url,
		})
	}
	if len(snaps) > 0 {
		c.logger.Debug("listed snapshots", zap.Int("count", len(snaps)))
	}
	return snaps, nil
}

// FetchResult downloads the raw payload of a ready snapshot.
func (c *Client) FetchResult(ctx context.Context, id string) ([]byte, error) {
	url := fmt.Sprintf("%s/snapshot/%s?format=json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProviderRequest("fetch", 0)
		return nil, fmt.Errorf("download snapshot %s: %w: %v", id, snapshot.ErrProviderUnavailable, err)
	}
	defer closeBody(resp.Body, c.logger)
	metrics.ObserveProviderRequest("fetch", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil, fmt.Errorf("snapshot %s: %w", id, snapshot.ErrResultNotReady)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("snapshot %s: %w", id, snapshot.ErrResultNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("snapshot %s: status %d: %w", id, resp.StatusCode, snapshot.ErrProviderUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s body: %w: %v", id, snapshot.ErrProviderUnavailable, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProviderRequest(op, 0)
		return nil, fmt.Errorf("%s snapshots: %w: %v", op, snapshot.ErrProviderUnavailable, err)
	}
	defer closeBody(resp.Body, c.logger)
	metrics.ObserveProviderRequest(op, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s snapshots: status %d: %w", op, resp.StatusCode, snapshot.ErrProviderUnavailable)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w: %v", op, snapshot.ErrProviderUnavailable, err)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func closeBody(body io.Closer, logger *zap.Logger) {
	if err := body.Close(); err != nil {
		logger.Warn("close response body", zap.Error(err))
	}
}

// statusFromWire maps provider status strings onto the four states the
// pipeline acts on. Unknown strings are treated as pending so they are
// skipped rather than fetched.
func statusFromWire(s string) snapshot.Status {
	switch strings.ToLower(s) {
	case "ready":
		return snapshot.StatusReady
	case "failed", "error":
		return snapshot.StatusFailed
	case "running", "building", "collecting":
		return snapshot.StatusRunning
	default:
		return snapshot.StatusPending
	}
}
