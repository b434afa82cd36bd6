// Package poller implements the reconciliation loop over provider snapshots.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/metrics"
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// Processor is the per-snapshot pipeline the loop drives.
type Processor interface {
	Process(ctx context.Context, snap snapshot.Snapshot, payload []byte) (snapshot.Outcome, error)
}

// Config controls loop timing and per-cycle fan-out.
type Config struct {
	Interval    time.Duration
	Concurrency int
}

// Poller re-lists all outstanding snapshots every interval and drives ready
// ones through the processor. There is no persisted cursor: the provider is
// the source of truth for what is still outstanding.
type Poller struct {
	provider  snapshot.Provider
	processor Processor
	cfg       Config
	logger    *zap.Logger

	mu   sync.Mutex
	last *snapshot.CycleReport
}

// New constructs a Poller.
func New(provider snapshot.Provider, processor Processor, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Poller{
		provider:  provider,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, repeating cycles until the context finishes. Cancellation is
// honored between iterations: the in-flight cycle completes, the next one
// never starts.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("snapshot poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("concurrency", p.cfg.Concurrency),
	)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot poller stopped")
			return
		case <-timer.C:
		}

		report, err := p.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			p.logger.Error("poll cycle aborted", zap.Error(err))
		} else if report.Seen > 0 {
			p.logger.Info("poll cycle complete",
				zap.Int("seen", report.Seen),
				zap.Int("skipped", report.Skipped),
				zap.Int("succeeded", report.Succeeded),
				zap.Int("failed", report.Failed),
				zap.Duration("duration", report.Duration),
			)
		}

		timer.Reset(p.cfg.Interval)
	}
}

// RunOnce executes one full pass over the provider's snapshot listing.
// Only a failed listing aborts the pass; each snapshot is processed
// independently and its outcome recorded in the report.
func (p *Poller) RunOnce(ctx context.Context) (snapshot.CycleReport, error) {
	report := snapshot.NewCycleReport(time.Now())

	snaps, err := p.provider.ListSnapshots(ctx)
	if err != nil {
		report.Duration = time.Since(report.Started)
		metrics.ObserveCycle("list_failed", report.Duration)
		p.setLast(report)
		return report, err
	}

	report.Seen = len(snaps)
	metrics.ObserveSnapshotsSeen(len(snaps))

	ready := p.classify(snaps, &report)

	var mu sync.Mutex
	jobs := make(chan snapshot.Snapshot)
	var wg sync.WaitGroup
	for range p.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range jobs {
				p.processOne(ctx, snap, &mu, &report)
			}
		}()
	}
	for _, snap := range ready {
		jobs <- snap
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(report.Started)
	metrics.ObserveCycle("ok", report.Duration)
	p.setLast(report)
	return report, nil
}

// classify partitions one listing, tallying skips and deduplicating ids.
// The seen set is scoped to this cycle only; whether a snapshot is still
// outstanding is the provider's call, not ours.
func (p *Poller) classify(snaps []snapshot.Snapshot, report *snapshot.CycleReport) []snapshot.Snapshot {
	seen := make(map[string]struct{}, len(snaps))
	ready := make([]snapshot.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if _, dup := seen[snap.ID]; dup {
			report.Skipped++
			continue
		}
		seen[snap.ID] = struct{}{}

		switch snap.Status {
		case snapshot.StatusReady:
			ready = append(ready, snap)
		case snapshot.StatusFailed:
			report.Skipped++
			metrics.ObserveSkipped(string(snap.Status))
			p.logger.Warn("provider reported snapshot failed",
				zap.String("snapshot_id", snap.ID),
				zap.String("url", snap.SourceURL),
			)
		default:
			report.Skipped++
			metrics.ObserveSkipped(string(snap.Status))
		}
	}
	return ready
}

func (p *Poller) processOne(
	ctx context.Context,
	snap snapshot.Snapshot,
	mu *sync.Mutex,
	report *snapshot.CycleReport,
) {
	payload, err := p.provider.FetchResult(ctx, snap.ID)
	if err != nil {
		if errors.Is(err, snapshot.ErrResultNotReady) {
			p.logger.Debug("snapshot still building", zap.String("snapshot_id", snap.ID))
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			metrics.ObserveSkipped("building")
			return
		}
		p.record(mu, report, snap, snapshot.OutcomeFetchFailed, err)
		return
	}

	outcome, err := p.processor.Process(ctx, snap, payload)
	p.record(mu, report, snap, outcome, err)
}

func (p *Poller) record(
	mu *sync.Mutex,
	report *snapshot.CycleReport,
	snap snapshot.Snapshot,
	outcome snapshot.Outcome,
	err error,
) {
	mu.Lock()
	report.Record(snap.ID, outcome, err)
	mu.Unlock()
	metrics.ObserveOutcome(snap.SourceKind.String(), string(outcome))
	if err != nil {
		p.logger.Warn("snapshot processing finished with error",
			zap.String("snapshot_id", snap.ID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}

func (p *Poller) setLast(report snapshot.CycleReport) {
	p.mu.Lock()
	p.last = &report
	p.mu.Unlock()
}

// LastReport returns the most recent cycle report, if any cycle has run.
func (p *Poller) LastReport() (snapshot.CycleReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return snapshot.CycleReport{}, false
	}
	return *p.last, true
}
