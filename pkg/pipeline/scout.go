package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadscout/pkg/analyzer"
	"leadscout/pkg/export"
	"leadscout/pkg/logger"
	"leadscout/pkg/notify"
	"leadscout/pkg/quota"
	"leadscout/pkg/scoring"
	"leadscout/pkg/storage"
	"leadscout/pkg/youtube"
)

// Scout runs the search -> analyze -> export pipeline. One Scout serves one
// run at a time; callers serialize runs.
type Scout struct {
	cfg      Config
	client   PlatformClient
	ledger   *quota.Ledger
	store    storage.DedupStore
	analyzer *analyzer.Analyzer
	filter   *scoring.Filter
	scorer   *scoring.Scorer
	exporter export.Exporter
	notifier notify.Notifier
	now      func() time.Time
	log      *logger.Logger

	mu    sync.RWMutex
	state State
}

// State returns the current phase
func (s *Scout) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ledger exposes the quota ledger for status reporting
func (s *Scout) Ledger() *quota.Ledger {
	return s.ledger
}

func (s *Scout) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.log.WithField("state", string(st)).Debug("Pipeline state changed")
}

// Run executes one full cycle. An empty niches slice uses the configured
// list. Quota exhaustion is not an error: the run exports what it has.
func (s *Scout) Run(ctx context.Context, niches []string) (*RunResult, error) {
	if len(niches) == 0 {
		niches = s.cfg.Niches
	}
	res := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Niches:    niches,
		Rows:      []export.ExportRow{},
	}
	log := s.log.WithField("run_id", res.RunID)
	log.Info(fmt.Sprintf("Scraper run started at %s", res.StartedAt.Format(export.TimestampLayout)))
	defer s.setState(StateDone)

	known, err := s.store.KnownIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load known channels: %w", err)
	}

	s.setState(StateSearching)
	candidates, stop := s.search(ctx, log, niches, known, &res.Stats)
	res.SearchStop = stop
	log.Info(s.ledger.Summary())

	s.setState(StateAnalyzing)
	res.Rows, res.AnalyzeStop = s.analyze(ctx, log, candidates, &res.Stats)
	log.Info(s.ledger.Summary())

	s.setState(StateExporting)
	exportErr := s.export(ctx, log, res)

	res.FinishedAt = s.now()
	res.QuotaUsed = s.ledger.Used()
	res.QuotaLimit = s.ledger.Limit()
	res.QuotaSummary = s.ledger.Summary()
	log.Info("\n" + res.Summary())

	s.sendReport(ctx, log, res)

	if exportErr != nil {
		return res, exportErr
	}
	return res, nil
}

// search collects channel ids not yet known, tagging each with the first
// niche that surfaced it. Known ids grow as candidates are found.
func (s *Scout) search(ctx context.Context, log *logger.Logger, niches []string, known map[string]struct{}, stats *RunStats) ([]Candidate, PhaseStop) {
	log.Info(fmt.Sprintf("Phase 1: Searching %d niches", len(niches)))
	candidates := make([]Candidate, 0)
	stop := PhaseCompleted

	for _, niche := range niches {
		if ctx.Err() != nil {
			stop = PhaseCanceled
			break
		}
		if !s.ledger.CanAfford(quota.OpSearch, 1) {
			log.Warn("Quota low - stopping search phase")
			stop = PhaseQuota
			break
		}

		page := s.client.Search(ctx, niche, s.cfg.SearchResultsPerNiche)
		stats.Searched += len(page.IDs)
		for _, id := range page.IDs {
			if _, seen := known[id]; seen {
				stats.DuplicatesSkipped++
				continue
			}
			known[id] = struct{}{}
			candidates = append(candidates, Candidate{ChannelID: id, Niche: niche})
		}

		if page.Stop == youtube.StopQuota {
			log.Warn("Search quota exhausted - stopping search phase")
			stop = PhaseQuota
			break
		}
	}

	stats.NewCandidates = len(candidates)
	log.WithFields(map[string]interface{}{
		"searched":   stats.Searched,
		"candidates": stats.NewCandidates,
		"duplicates": stats.DuplicatesSkipped,
	}).Info(fmt.Sprintf("Phase 1 complete: %d total IDs, %d new candidates, %d duplicates skipped",
		stats.Searched, stats.NewCandidates, stats.DuplicatesSkipped))
	return candidates, stop
}

// analyze processes candidates one at a time up to the per-run cap
func (s *Scout) analyze(ctx context.Context, log *logger.Logger, candidates []Candidate, stats *RunStats) ([]export.ExportRow, PhaseStop) {
	if len(candidates) > s.cfg.MaxChannelsPerRun {
		candidates = candidates[:s.cfg.MaxChannelsPerRun]
	}
	total := len(candidates)
	log.Info(fmt.Sprintf("Phase 2: Analyzing up to %d candidates", total))

	rows := make([]export.ExportRow, 0)
	progress := logger.NewProgressReporter(log, total, "Analyzing channels", 30*time.Second)
	defer func() {
		log.Info(fmt.Sprintf("Phase 2 complete: %d of %d candidates processed, %d qualified",
			progress.Current(), total, stats.Qualified))
	}()

	for i, c := range candidates {
		if ctx.Err() != nil {
			return rows, PhaseCanceled
		}
		if s.ledger.Remaining() < s.cfg.QuotaFloor {
			log.Warn("Quota nearly exhausted - stopping analysis")
			return rows, PhaseQuota
		}

		clog := log.WithFields(map[string]interface{}{"channel_id": c.ChannelID, "niche": c.Niche})
		clog.Debug(fmt.Sprintf("[%d/%d] Analyzing channel %s", i+1, total, c.ChannelID))

		out, err := s.processCandidate(ctx, clog, c)
		if out.analyzed {
			stats.Analyzed++
		}
		if err != nil {
			if isQuotaError(err) {
				clog.WithError(err).Warn("Quota exhausted - stopping analysis")
				return rows, PhaseQuota
			}
			stats.Errors++
			clog.WithError(err).Error("Error processing channel " + c.ChannelID)
		}
		if out.row != nil {
			rows = append(rows, *out.row)
			stats.Qualified++
		}
		progress.Update(1)
	}
	return rows, PhaseCompleted
}

type candidateOutcome struct {
	analyzed bool
	row      *export.ExportRow
}

// processCandidate never panics; a panic is reported as an error
func (s *Scout) processCandidate(ctx context.Context, log *logger.Logger, c Candidate) (out candidateOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing channel %s: %v", c.ChannelID, r)
		}
	}()

	ch, err := s.client.ChannelDetail(ctx, c.ChannelID)
	if err != nil {
		if isQuotaError(err) {
			return out, err
		}
		log.WithError(err).Debug("Could not fetch channel details - skipping")
		return out, nil
	}
	if ch == nil {
		log.Debug("Channel not found - skipping")
		return out, nil
	}

	if d := s.filter.PreCheck(ch); !d.Admitted {
		log.WithField("reason", string(d.Reason)).Debug(d.Detail + " - skipping")
		return out, nil
	}

	uploads := s.client.UploadVideoIDs(ctx, ch.UploadsPlaylistID, s.cfg.MaxVideosToScan)
	if len(uploads.IDs) == 0 {
		log.WithField("stop", string(uploads.Stop)).Debug("No videos found - skipping")
		return out, nil
	}

	videos := s.client.VideoDetails(ctx, uploads.IDs)
	if videos.Stop.Degraded() {
		log.WithError(videos.Err).WithField("videos", len(videos.Videos)).Debug("Partial video details")
	}
	analysis := s.analyzer.Analyze(videos.Videos)
	out.analyzed = true

	now := s.now()
	if d := s.filter.Admit(ch, analysis, now); !d.Admitted {
		log.WithField("reason", string(d.Reason)).Debug(d.Detail + " - did not pass filters")
		return out, nil
	}

	score := s.scorer.Score(ch, analysis, c.Niche)
	row := export.BuildRow(ch, analysis, score, c.Niche, now)
	if err := s.store.Upsert(ctx, ch.ID, ch.Name, row); err != nil {
		// the lead still counts for this run; it will be rediscovered next time
		log.WithError(err).Error("Failed to persist channel")
	}
	out.row = &row

	log.WithFields(map[string]interface{}{
		"subscribers": ch.SubscriberCount,
		"shorts":      analysis.ShortsCount,
		"longform":    analysis.LongformCount,
		"score":       score,
	}).Info(fmt.Sprintf("QUALIFIED - %s | subs=%d shorts=%d longform=%d score=%.1f",
		ch.Name, ch.SubscriberCount, analysis.ShortsCount, analysis.LongformCount, score))
	return out, nil
}

func (s *Scout) export(ctx context.Context, log *logger.Logger, res *RunResult) error {
	log.Info(fmt.Sprintf("Phase 3: Exporting %d qualified channels", len(res.Rows)))
	sort.SliceStable(res.Rows, func(i, j int) bool {
		return res.Rows[i].PriorityScore > res.Rows[j].PriorityScore
	})

	dest, err := s.exporter.Export(ctx, res.Rows)
	if err != nil {
		log.WithError(err).Error("Export failed")
		res.Destination = "export failed: " + err.Error()
		return fmt.Errorf("export: %w", err)
	}
	res.Destination = dest
	return nil
}

// sendReport is best-effort; a failed send is only logged
func (s *Scout) sendReport(ctx context.Context, log *logger.Logger, res *RunResult) {
	subject := ReportSubject(res.FinishedAt)
	body := ReportBody(res, s.cfg.ReportTopN)
	if err := s.notifier.Notify(ctx, subject, body); err != nil {
		log.WithError(err).Error("Failed to send email")
	}
}

func isQuotaError(err error) bool {
	return errors.Is(err, youtube.ErrQuotaExceeded) || errors.Is(err, youtube.ErrBudgetExhausted)
}

var _ PlatformClient = (*youtube.Client)(nil)
