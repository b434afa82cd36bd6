package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

type fakeProvider struct {
	mu         sync.Mutex
	snaps      []snapshot.Snapshot
	listErr    error
	payloads   map[string][]byte
	fetchErrs  map[string]error
	listCalls  int
	fetchCalls map[string]int
}

func newFakeProvider(snaps ...snapshot.Snapshot) *fakeProvider {
	return &fakeProvider{
		snaps:      snaps,
		payloads:   make(map[string][]byte),
		fetchErrs:  make(map[string]error),
		fetchCalls: make(map[string]int),
	}
}

func (p *fakeProvider) ListSnapshots(context.Context) ([]snapshot.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.snaps, nil
}

func (p *fakeProvider) FetchResult(_ context.Context, id string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls[id]++
	if err, ok := p.fetchErrs[id]; ok {
		return nil, err
	}
	payload, ok := p.payloads[id]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", id, snapshot.ErrResultNotFound)
	}
	return payload, nil
}

func (p *fakeProvider) fetches(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls[id]
}

type fakeProcessor struct {
	mu       sync.Mutex
	outcomes map[string]snapshot.Outcome
	errs     map[string]error
	calls    map[string]int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		outcomes: make(map[string]snapshot.Outcome),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (p *fakeProcessor) Process(_ context.Context, snap snapshot.Snapshot, _ []byte) (snapshot.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[snap.ID]++
	if outcome, ok := p.outcomes[snap.ID]; ok {
		return outcome, p.errs[snap.ID]
	}
	return snapshot.OutcomeUpdated, nil
}

func (p *fakeProcessor) processed(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

func snap(id string, status snapshot.Status) snapshot.Snapshot {
	return snapshot.Snapshot{
		ID:         id,
		Status:     status,
		SourceKind: snapshot.KindX,
		SourceURL:  "https://x.com/u/status/" + id,
	}
}

func TestRunOnce_OnlyReadySnapshotsAreFetched(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(
		snap("pending", snapshot.StatusPending),
		snap("running", snapshot.StatusRunning),
		snap("failed", snapshot.StatusFailed),
		snap("ready", snapshot.StatusReady),
	)
	provider.payloads["ready"] = []byte(`[{"text": "hi"}]`)
	processor := newFakeProcessor()

	p := New(provider, processor, Config{}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 4, report.Seen)
	require.Equal(t, 3, report.Skipped)
	require.Equal(t, 1, report.Succeeded)
	require.Zero(t, report.Failed)

	for _, id := range []string{"pending", "running", "failed"} {
		require.Zero(t, provider.fetches(id), "snapshot %s must not be fetched", id)
	}
	require.Equal(t, 1, provider.fetches("ready"))
	require.Equal(t, 1, processor.processed("ready"))
}

func TestRunOnce_DuplicateIDsProcessedOnce(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(
		snap("s1", snapshot.StatusReady),
		snap("s1", snapshot.StatusReady),
	)
	provider.payloads["s1"] = []byte(`[{"text": "hi"}]`)
	processor := newFakeProcessor()

	p := New(provider, processor, Config{}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Seen)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, processor.processed("s1"))
}

func TestRunOnce_FailuresAreIndependent(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(
		snap("good", snapshot.StatusReady),
		snap("bad", snapshot.StatusReady),
	)
	provider.payloads["good"] = []byte(`[{"text": "hi"}]`)
	provider.payloads["bad"] = []byte(`[]`)
	processor := newFakeProcessor()
	processor.outcomes["bad"] = snapshot.OutcomeExtractionFailed
	processor.errs["bad"] = errors.New("no usable fields")

	p := New(provider, processor, Config{Concurrency: 4}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Outcomes[snapshot.OutcomeUpdated])
	require.Equal(t, 1, report.Outcomes[snapshot.OutcomeExtractionFailed])
	require.Contains(t, report.Errors, "bad")
}

func TestRunOnce_ListFailureAbortsCycle(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.listErr = snapshot.ErrProviderUnavailable
	processor := newFakeProcessor()

	p := New(provider, processor, Config{}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.ErrorIs(t, err, snapshot.ErrProviderUnavailable)
	require.Zero(t, report.Seen)

	last, ok := p.LastReport()
	require.True(t, ok)
	require.Zero(t, last.Seen)
}

func TestRunOnce_NotReadyResultIsSkipped(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(snap("s1", snapshot.StatusReady))
	provider.fetchErrs["s1"] = fmt.Errorf("snapshot s1: %w", snapshot.ErrResultNotReady)
	processor := newFakeProcessor()

	p := New(provider, processor, Config{}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Skipped)
	require.Zero(t, report.Failed)
	require.Zero(t, processor.processed("s1"))
}

func TestRunOnce_FetchFailureIsRecorded(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(snap("s1", snapshot.StatusReady))
	provider.fetchErrs["s1"] = snapshot.ErrProviderUnavailable
	processor := newFakeProcessor()

	p := New(provider, processor, Config{}, zap.NewNop())
	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Outcomes[snapshot.OutcomeFetchFailed])
	require.Zero(t, processor.processed("s1"))
}

func TestLastReport_EmptyBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	p := New(newFakeProvider(), newFakeProcessor(), Config{}, zap.NewNop())
	_, ok := p.LastReport()
	require.False(t, ok)
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(snap("s1", snapshot.StatusReady))
	provider.payloads["s1"] = []byte(`[{"text": "hi"}]`)
	processor := newFakeProcessor()

	p := New(provider, processor, Config{Interval: 5 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, ok := p.LastReport()
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
