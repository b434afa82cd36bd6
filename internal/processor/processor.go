// Package processor drives one downloaded snapshot through extraction and
// record update.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/extract"
	"github.com/sharevia/snapshotd/internal/metrics"
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// Config controls the optional post-update collaborators.
type Config struct {
	// EventTopic enables completion events when non-empty.
	EventTopic string
	// ArchivePrefix prefixes raw payload blob paths.
	ArchivePrefix string
}

// Processor applies one snapshot's result to its bookmark. Extraction and
// the single store update are the only failure points: the record is either
// fully updated or untouched.
type Processor struct {
	store     snapshot.Store
	archiver  snapshot.Archiver
	publisher snapshot.Publisher
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Processor. Archiver and publisher are optional; nil
// disables the corresponding side effect.
func New(
	store snapshot.Store,
	archiver snapshot.Archiver,
	publisher snapshot.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		store:     store,
		archiver:  archiver,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process runs extraction and the atomic record update for one ready
// snapshot. The returned error carries detail for the cycle report; the
// outcome alone decides how the cycle tallies it.
func (p *Processor) Process(ctx context.Context, snap snapshot.Snapshot, payload []byte) (snapshot.Outcome, error) {
	extractor, err := extract.ForKind(snap.SourceKind)
	if err != nil {
		metrics.ObserveUnsupportedKind()
		p.logger.Error("no extractor registered for source kind",
			zap.String("snapshot_id", snap.ID),
			zap.String("kind", snap.SourceKind.String()),
			zap.String("url", snap.SourceURL),
		)
		return snapshot.OutcomeUnsupportedKind, err
	}

	items, err := decodeItems(payload)
	if err != nil {
		return snapshot.OutcomeExtractionFailed, err
	}

	// Provider-reported scrape failures arrive as error entries inside an
	// otherwise successful download. Record them on the bookmark so the
	// snapshot is consumed instead of festering.
	if msg, found := payloadError(items); found {
		return p.recordScrapeError(ctx, snap, msg)
	}

	result, err := extractor.Extract(items[0])
	if err != nil {
		return snapshot.OutcomeExtractionFailed, err
	}

	record, err := p.store.FindByURL(ctx, snap.SourceURL)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoMatchingRecord) {
			return snapshot.OutcomeNoMatchingRecord, err
		}
		return snapshot.OutcomeStoreFailed, err
	}

	if err := p.store.ApplyUpdate(ctx, record.ID, buildUpdate(result)); err != nil {
		return snapshot.OutcomeStoreFailed, err
	}

	p.archivePayload(ctx, snap, payload)
	p.publishCompletion(ctx, snap, record.ID)

	p.logger.Info("bookmark updated from snapshot",
		zap.String("snapshot_id", snap.ID),
		zap.String("bookmark_id", record.ID),
		zap.String("kind", snap.SourceKind.String()),
		zap.Int("text_len", len(result.Text)),
		zap.Int("media", len(result.Media)),
	)
	return snapshot.OutcomeUpdated, nil
}

func (p *Processor) recordScrapeError(ctx context.Context, snap snapshot.Snapshot, msg string) (snapshot.Outcome, error) {
	record, err := p.store.FindByURL(ctx, snap.SourceURL)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoMatchingRecord) {
			return snapshot.OutcomeNoMatchingRecord, err
		}
		return snapshot.OutcomeStoreFailed, err
	}
	update := snapshot.BookmarkUpdate{ScrapeError: &msg, ClearSnapshotID: true}
	if err := p.store.ApplyUpdate(ctx, record.ID, update); err != nil {
		return snapshot.OutcomeStoreFailed, err
	}
	p.logger.Warn("provider reported scrape error",
		zap.String("snapshot_id", snap.ID),
		zap.String("bookmark_id", record.ID),
		zap.String("error", msg),
	)
	return snapshot.OutcomeErrorRecorded, nil
}

// archivePayload stores the raw payload for audit. Failures are logged and
// never change the processing outcome.
func (p *Processor) archivePayload(ctx context.Context, snap snapshot.Snapshot, payload []byte) {
	if p.archiver == nil {
		return
	}
	path := snap.ID + ".json"
	if p.cfg.ArchivePrefix != "" {
		path = p.cfg.ArchivePrefix + "/" + path
	}
	uri, err := p.archiver.Put(ctx, path, "application/json", payload)
	if err != nil {
		p.logger.Warn("archive payload failed", zap.String("snapshot_id", snap.ID), zap.Error(err))
		return
	}
	p.logger.Debug("payload archived", zap.String("snapshot_id", snap.ID), zap.String("uri", uri))
}

// publishCompletion emits a completion event. Failures are logged and never
// change the processing outcome.
func (p *Processor) publishCompletion(ctx context.Context, snap snapshot.Snapshot, recordID string) {
	if p.publisher == nil || p.cfg.EventTopic == "" {
		return
	}
	payload := map[string]any{
		"snapshot_id": snap.ID,
		"bookmark_id": recordID,
		"source_kind": snap.SourceKind.String(),
		"source_url":  snap.SourceURL,
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.EventTopic, payload); err != nil {
		p.logger.Warn("publish completion event failed", zap.String("snapshot_id", snap.ID), zap.Error(err))
	}
}

// decodeItems splits a raw download into result items. Providers return
// either a JSON array or a bare object for single-URL snapshots.
func decodeItems(payload []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err == nil {
		if len(items) == 0 {
			return nil, &snapshot.MalformedPayloadError{Kind: snapshot.KindUnknown, Reason: "empty result set"}
		}
		return items, nil
	}
	var single json.RawMessage
	if err := json.Unmarshal(payload, &single); err != nil || len(single) == 0 || single[0] != '{' {
		return nil, &snapshot.MalformedPayloadError{Kind: snapshot.KindUnknown, Reason: "neither array nor object"}
	}
	return []json.RawMessage{single}, nil
}

// payloadError scans result items for provider error entries.
func payloadError(items []json.RawMessage) (string, bool) {
	for _, item := range items {
		var entry struct {
			Error     string `json:"error"`
			ErrorCode string `json:"error_code"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if entry.Error != "" {
			if entry.ErrorCode != "" {
				return fmt.Sprintf("%s (%s)", entry.Error, entry.ErrorCode), true
			}
			return entry.Error, true
		}
	}
	return "", false
}

// buildUpdate maps normalized fields onto the bookmark's sparse column set.
// The video preview is only set when no image preview exists, matching what
// the bookmark UI renders.
func buildUpdate(result snapshot.ExtractionResult) snapshot.BookmarkUpdate {
	update := snapshot.BookmarkUpdate{ClearSnapshotID: true}
	if result.Text != "" {
		update.Description = &result.Text
	}
	if img, ok := result.FirstMedia(snapshot.MediaImage); ok {
		update.PreviewImageURL = &img.URL
	} else if vid, ok := result.FirstMedia(snapshot.MediaVideo); ok {
		update.PreviewVideoURL = &vid.URL
	}
	if result.Profile != nil {
		if name := profileName(result.Profile); name != "" {
			update.SocialProfileName = &name
		}
	}
	return update
}

func profileName(p *snapshot.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Handle
}
