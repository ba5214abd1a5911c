package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/pkg/model"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/quota"
	"leadscout/pkg/storage"
)

type fakeRunner struct {
	ledger  *quota.Ledger
	release chan struct{}
	started chan struct{}
	result  *pipeline.RunResult
	err     error
	panics  bool

	mu     sync.Mutex
	niches []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		ledger:  quota.NewLedger(10000, 100, nil),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
		result:  &pipeline.RunResult{RunID: "run-1", QuotaUsed: 207, QuotaLimit: 9900, Stats: pipeline.RunStats{Qualified: 2}},
	}
}

func (f *fakeRunner) Run(ctx context.Context, niches []string) (*pipeline.RunResult, error) {
	f.mu.Lock()
	f.niches = niches
	f.mu.Unlock()
	f.ledger.Consume(quota.OpSearch, 1)
	f.started <- struct{}{}
	<-f.release
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

func (f *fakeRunner) State() pipeline.State { return pipeline.StateSearching }
func (f *fakeRunner) Ledger() *quota.Ledger { return f.ledger }

func serviceWith(t *testing.T, r *fakeRunner) *RunService {
	t.Helper()
	store := storage.NewMemoryStore(nil)
	t.Cleanup(func() { store.Close() })
	svc := NewRunService(context.Background(), func(ctx context.Context) (Runner, error) {
		return r, nil
	}, store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC) }
	return svc
}

func TestRunService_TriggerRejectsConcurrentRun(t *testing.T) {
	r := newFakeRunner()
	svc := serviceWith(t, r)

	require.NoError(t, svc.Trigger([]string{"video essays"}))
	<-r.started

	assert.ErrorIs(t, svc.Trigger(nil), ErrRunInProgress)
	_, err := svc.RunNow(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	st := svc.Status()
	assert.True(t, st.Running)
	assert.Equal(t, pipeline.StateSearching, st.State)
	assert.Equal(t, 100, st.QuotaUsed)
	assert.Equal(t, 9800, st.QuotaLeft)

	close(r.release)
	svc.Wait()

	st = svc.Status()
	assert.False(t, st.Running)
	assert.Equal(t, pipeline.StateDone, st.State)
	assert.Equal(t, 207, st.QuotaUsed)
	assert.Equal(t, 9900, st.QuotaLimit)
	assert.Equal(t, 9693, st.QuotaLeft)
	assert.Equal(t, "run-1", st.LastRun.RunID)
	assert.Equal(t, 1, st.CompletedRuns)
	assert.Empty(t, st.LastError)
	assert.Equal(t, []string{"video essays"}, r.niches)
}

func TestRunService_ShutdownWaitsForRunInPlace(t *testing.T) {
	r := newFakeRunner()
	svc := serviceWith(t, r)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_, _ = svc.RunNow(context.Background(), nil)
	}()
	<-r.started

	stopped := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Shutdown returned while a run was still active")
	case <-time.After(50 * time.Millisecond):
	}

	close(r.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the run finished")
	}
	<-runDone
	assert.Equal(t, 1, svc.Status().CompletedRuns)

	assert.ErrorIs(t, svc.Trigger(nil), ErrShuttingDown)
	_, err := svc.RunNow(context.Background(), nil)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestRunService_RunNowRecordsError(t *testing.T) {
	r := newFakeRunner()
	r.err = errors.New("export failed")
	close(r.release)
	svc := serviceWith(t, r)

	res, err := svc.RunNow(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "run-1", res.RunID)

	st := svc.Status()
	assert.Equal(t, "export failed", st.LastError)
	assert.NotNil(t, st.LastRunAt)
}

func TestRunService_PanicReleasesLock(t *testing.T) {
	r := newFakeRunner()
	r.panics = true
	close(r.release)
	svc := serviceWith(t, r)

	_, err := svc.RunNow(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	r.panics = false
	_, err = svc.RunNow(context.Background(), nil)
	assert.NoError(t, err)
}

func TestRunService_FactoryError(t *testing.T) {
	svc := NewRunService(context.Background(), func(ctx context.Context) (Runner, error) {
		return nil, errors.New("api key missing")
	}, storage.NewMemoryStore(nil))

	err := svc.Trigger(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key missing")
	assert.False(t, svc.Status().Running)
}

func TestRunService_UpdateLeadStatus(t *testing.T) {
	r := newFakeRunner()
	svc := serviceWith(t, r)
	ctx := context.Background()

	store := svc.store.(storage.DedupStore)
	require.NoError(t, store.Upsert(ctx, "UC1", "Chan", []byte(`{}`)))

	require.NoError(t, svc.UpdateLeadStatus(ctx, "UC1", model.StatusContacted))
	rec, err := svc.Lead(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusContacted, rec.Status)

	assert.ErrorIs(t, svc.UpdateLeadStatus(ctx, "UC1", "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateLeadStatus(ctx, "UC404", model.StatusReplied), storage.ErrNotFound)
}

func TestScheduler_NextRun(t *testing.T) {
	s, err := NewScheduler("03:00", false, func(context.Context) {})
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before today", time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC), time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)},
		{"exactly at", time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)},
		{"after today", time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)},
		{"month end", time.Date(2026, 3, 31, 4, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.NextRun(tt.now))
		})
	}
}

func TestScheduler_InvalidTime(t *testing.T) {
	_, err := NewScheduler("25:99", false, func(context.Context) {})
	assert.Error(t, err)
}

func TestScheduler_RunsOnStartAndOnTick(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewScheduler("03:00", true, func(context.Context) {
		mu.Lock()
		runs++
		n := runs
		mu.Unlock()
		if n == 2 {
			cancel()
		}
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	var waits []time.Duration
	s.now = func() time.Time { return now }
	s.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- now.Add(d)
		return ch
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
	require.NotEmpty(t, waits)
	assert.Equal(t, time.Hour, waits[0])
}
