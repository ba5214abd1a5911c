package pipeline

import (
	"context"
	"time"

	"leadscout/pkg/export"
	"leadscout/pkg/model"
	"leadscout/pkg/youtube"
)

// PlatformClient is the remote read surface the pipeline drives.
// *youtube.Client implements it.
type PlatformClient interface {
	Search(ctx context.Context, query string, maxResults int) youtube.IDPage
	ChannelDetail(ctx context.Context, channelID string) (*model.ChannelSnapshot, error)
	UploadVideoIDs(ctx context.Context, playlistID string, maxItems int) youtube.IDPage
	VideoDetails(ctx context.Context, videoIDs []string) youtube.VideoPage
}

// State is the orchestrator's phase
type State string

const (
	StateIdle      State = "IDLE"
	StateSearching State = "SEARCHING"
	StateAnalyzing State = "ANALYZING"
	StateExporting State = "EXPORTING"
	StateDone      State = "DONE"
)

// PhaseStop says why a phase ended
type PhaseStop string

const (
	PhaseCompleted PhaseStop = "completed"
	PhaseQuota     PhaseStop = "quota_exhausted"
	PhaseCanceled  PhaseStop = "canceled"
)

// Config bounds a single run
type Config struct {
	Niches                []string `mapstructure:"niches"`
	SearchResultsPerNiche int      `mapstructure:"search_results_per_niche"`
	MaxChannelsPerRun     int      `mapstructure:"max_channels_per_run"`
	MaxVideosToScan       int      `mapstructure:"max_videos_to_scan"`
	// QuotaFloor ends the analyze phase once remaining budget drops below it
	QuotaFloor int `mapstructure:"quota_floor"`
	// ReportTopN is how many channels the email report lists
	ReportTopN int `mapstructure:"report_top_n"`
}

func DefaultConfig() Config {
	return Config{
		Niches:                DefaultNiches(),
		SearchResultsPerNiche: 50,
		MaxChannelsPerRun:     500,
		MaxVideosToScan:       200,
		QuotaFloor:            10,
		ReportTopN:            5,
	}
}

// Candidate is a newly discovered channel with the niche that found it first
type Candidate struct {
	ChannelID string
	Niche     string
}

// RunStats are the run-level counters
type RunStats struct {
	Searched          int `json:"searched"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	NewCandidates     int `json:"new_candidates"`
	Analyzed          int `json:"analyzed"`
	Qualified         int `json:"qualified"`
	Errors            int `json:"errors"`
}

// RunResult is everything a finished run produced
type RunResult struct {
	RunID        string             `json:"run_id"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Niches       []string           `json:"niches"`
	Rows         []export.ExportRow `json:"rows"`
	Stats        RunStats           `json:"stats"`
	Destination  string             `json:"destination"`
	SearchStop   PhaseStop          `json:"search_stop"`
	AnalyzeStop  PhaseStop          `json:"analyze_stop"`
	QuotaUsed    int                `json:"quota_used"`
	QuotaLimit   int                `json:"quota_limit"`
	QuotaSummary string             `json:"quota_summary"`
}

// Elapsed is the wall-clock duration of the run
func (r *RunResult) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
