package pipeline

import (
	"fmt"
	"strings"
	"time"

	"leadscout/pkg/analyzer"
	"leadscout/pkg/export"
	"leadscout/pkg/logger"
	"leadscout/pkg/notify"
	"leadscout/pkg/quota"
	"leadscout/pkg/scoring"
	"leadscout/pkg/storage"
)

// ScoutBuilder assembles a Scout, collecting every validation error so
// Build reports them together
type ScoutBuilder struct {
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
	errors   []error
}

func NewScoutBuilder() *ScoutBuilder {
	return &ScoutBuilder{
		cfg:    DefaultConfig(),
		errors: make([]error, 0),
	}
}

// WithConfig sets the run bounds
func (b *ScoutBuilder) WithConfig(cfg Config) *ScoutBuilder {
	if cfg.SearchResultsPerNiche <= 0 {
		b.errors = append(b.errors, fmt.Errorf("search results per niche must be positive, got: %d", cfg.SearchResultsPerNiche))
	}
	if cfg.MaxChannelsPerRun <= 0 {
		b.errors = append(b.errors, fmt.Errorf("max channels per run must be positive, got: %d", cfg.MaxChannelsPerRun))
	}
	if cfg.MaxVideosToScan <= 0 {
		b.errors = append(b.errors, fmt.Errorf("max videos to scan must be positive, got: %d", cfg.MaxVideosToScan))
	}
	if cfg.QuotaFloor < 0 {
		b.errors = append(b.errors, fmt.Errorf("quota floor must not be negative, got: %d", cfg.QuotaFloor))
	}
	if len(cfg.Niches) == 0 {
		cfg.Niches = DefaultNiches()
	}
	if cfg.ReportTopN <= 0 {
		cfg.ReportTopN = 5
	}
	b.cfg = cfg
	return b
}

func (b *ScoutBuilder) WithClient(c PlatformClient) *ScoutBuilder {
	if c == nil {
		b.errors = append(b.errors, fmt.Errorf("platform client cannot be nil"))
		return b
	}
	b.client = c
	return b
}

func (b *ScoutBuilder) WithLedger(l *quota.Ledger) *ScoutBuilder {
	if l == nil {
		b.errors = append(b.errors, fmt.Errorf("quota ledger cannot be nil"))
		return b
	}
	b.ledger = l
	return b
}

func (b *ScoutBuilder) WithStore(s storage.DedupStore) *ScoutBuilder {
	if s == nil {
		b.errors = append(b.errors, fmt.Errorf("dedup store cannot be nil"))
		return b
	}
	b.store = s
	return b
}

func (b *ScoutBuilder) WithAnalyzer(a *analyzer.Analyzer) *ScoutBuilder {
	b.analyzer = a
	return b
}

func (b *ScoutBuilder) WithCriteria(c scoring.Criteria) *ScoutBuilder {
	if c.MinSubscribers > c.MaxSubscribers {
		b.errors = append(b.errors, fmt.Errorf("min subscribers %d exceeds max %d", c.MinSubscribers, c.MaxSubscribers))
		return b
	}
	b.filter = scoring.NewFilter(c)
	return b
}

func (b *ScoutBuilder) WithScoring(w scoring.Weights, t scoring.Thresholds) *ScoutBuilder {
	if err := w.Validate(); err != nil {
		b.errors = append(b.errors, err)
		return b
	}
	b.scorer = scoring.NewScorer(w, t)
	return b
}

func (b *ScoutBuilder) WithExporter(e export.Exporter) *ScoutBuilder {
	if e == nil {
		b.errors = append(b.errors, fmt.Errorf("exporter cannot be nil"))
		return b
	}
	b.exporter = e
	return b
}

// WithNotifier sets the report channel; without one reports are dropped
func (b *ScoutBuilder) WithNotifier(n notify.Notifier) *ScoutBuilder {
	b.notifier = n
	return b
}

// WithClock replaces time.Now
func (b *ScoutBuilder) WithClock(now func() time.Time) *ScoutBuilder {
	b.now = now
	return b
}

func (b *ScoutBuilder) WithLogger(l *logger.Logger) *ScoutBuilder {
	b.log = l
	return b
}

// Validate reports every error collected so far plus missing requirements
func (b *ScoutBuilder) Validate() error {
	errs := append([]error(nil), b.errors...)
	if b.client == nil {
		errs = append(errs, fmt.Errorf("platform client is required"))
	}
	if b.ledger == nil {
		errs = append(errs, fmt.Errorf("quota ledger is required"))
	}
	if b.store == nil {
		errs = append(errs, fmt.Errorf("dedup store is required"))
	}
	if b.exporter == nil {
		errs = append(errs, fmt.Errorf("exporter is required"))
	}
	if len(errs) == 0 {
		return nil
	}

	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("pipeline configuration invalid: %s", strings.Join(messages, "; "))
}

// Build returns the Scout or every configuration error at once
func (b *ScoutBuilder) Build() (*Scout, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	s := &Scout{
		cfg:      b.cfg,
		client:   b.client,
		ledger:   b.ledger,
		store:    b.store,
		analyzer: b.analyzer,
		filter:   b.filter,
		scorer:   b.scorer,
		exporter: b.exporter,
		notifier: b.notifier,
		now:      b.now,
		log:      b.log,
		state:    StateIdle,
	}
	if s.analyzer == nil {
		s.analyzer = analyzer.New(analyzer.Config{})
	}
	if s.filter == nil {
		s.filter = scoring.NewFilter(scoring.DefaultCriteria())
	}
	if s.scorer == nil {
		s.scorer = scoring.NewScorer(scoring.DefaultWeights(), scoring.DefaultThresholds())
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	s.log = s.log.WithField("component", "pipeline")
	return s, nil
}
