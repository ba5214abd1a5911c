package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadscout/pkg/logger"
	"leadscout/pkg/model"
	"leadscout/pkg/pipeline"
)

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = errors.New("a run is already in progress")

// ErrShuttingDown is returned once Shutdown has been called
var ErrShuttingDown = errors.New("run service is shutting down")

// Status is a point-in-time view of the service
type Status struct {
	Running       bool                `json:"running"`
	State         pipeline.State      `json:"state"`
	QuotaUsed     int                 `json:"quota_used"`
	QuotaLimit    int                 `json:"quota_limit"`
	QuotaLeft     int                 `json:"quota_remaining"`
	LastRun       *pipeline.RunResult `json:"last_run,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	LastRunAt     *time.Time          `json:"last_run_at,omitempty"`
	CompletedRuns int                 `json:"completed_runs"`
}

// RunService serializes runs inside one process. Concurrent runs against the
// same dedup store are unsafe, so at most one is active at a time.
type RunService struct {
	factory RunnerFactory
	store   LeadStore
	base    context.Context
	now     func() time.Time
	log     *logger.Logger

	mu       sync.Mutex
	active   Runner
	last     *pipeline.RunResult
	lastErr  error
	lastAt   *time.Time
	finished int
	closed   bool
	// wg counts every acquired run, triggered or run in place
	wg sync.WaitGroup
}

// NewRunService runs background triggers under base; cancelling base stops them
func NewRunService(base context.Context, factory RunnerFactory, store LeadStore) *RunService {
	return &RunService{
		factory: factory,
		store:   store,
		base:    base,
		now:     time.Now,
		log:     logger.GetLogger().WithField("component", "run_service"),
	}
}

// Trigger starts a run in the background
func (s *RunService) Trigger(niches []string) error {
	runner, err := s.acquire(s.base)
	if err != nil {
		return err
	}

	go s.execute(s.base, runner, niches)
	return nil
}

// RunNow runs in the caller's goroutine
func (s *RunService) RunNow(ctx context.Context, niches []string) (*pipeline.RunResult, error) {
	runner, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, runner, niches)
}

// Wait blocks until every acquired run has finished
func (s *RunService) Wait() {
	s.wg.Wait()
}

// Shutdown refuses new runs and waits for the active one to finish exporting
func (s *RunService) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *RunService) acquire(ctx context.Context) (Runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrShuttingDown
	}
	if s.active != nil {
		return nil, ErrRunInProgress
	}
	runner, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare run: %w", err)
	}
	s.active = runner
	s.wg.Add(1)
	return runner, nil
}

func (s *RunService) execute(ctx context.Context, runner Runner, niches []string) (res *pipeline.RunResult, err error) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
		s.finish(res, err)
	}()
	return runner.Run(ctx, niches)
}

func (s *RunService) finish(res *pipeline.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.active = nil
	s.lastAt = &now
	s.lastErr = err
	s.finished++
	if res != nil {
		s.last = res
	}

	if err != nil {
		s.log.WithError(err).Error("Run failed")
		return
	}
	if res != nil {
		s.log.WithFields(map[string]interface{}{
			"run_id":    res.RunID,
			"qualified": res.Stats.Qualified,
		}).Info(fmt.Sprintf("Done - %d qualified channels found", len(res.Rows)))
	}
}

func (s *RunService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:       s.active != nil,
		State:         pipeline.StateIdle,
		LastRun:       s.last,
		LastRunAt:     s.lastAt,
		CompletedRuns: s.finished,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.active != nil {
		st.State = s.active.State()
		if l := s.active.Ledger(); l != nil {
			st.QuotaUsed, st.QuotaLimit, st.QuotaLeft = l.Used(), l.Limit(), l.Remaining()
		}
	} else if s.last != nil {
		st.State = pipeline.StateDone
		st.QuotaUsed, st.QuotaLimit = s.last.QuotaUsed, s.last.QuotaLimit
		if left := s.last.QuotaLimit - s.last.QuotaUsed; left > 0 {
			st.QuotaLeft = left
		}
	}
	return st
}

func (s *RunService) Lead(ctx context.Context, channelID string) (*model.DedupRecord, error) {
	return s.store.Get(ctx, channelID)
}

func (s *RunService) UpdateLeadStatus(ctx context.Context, channelID, status string) error {
	if !model.ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.store.UpdateStatus(ctx, channelID, status); err != nil {
		return err
	}
	s.log.WithFields(map[string]interface{}{"channel_id": channelID, "status": status}).Info("Lead status updated")
	return nil
}

// ErrInvalidStatus is returned for a status outside the lead workflow
var ErrInvalidStatus = errors.New("invalid lead status")

var _ RunController = (*RunService)(nil)
