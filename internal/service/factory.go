package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadscout/internal/config"
	"leadscout/pkg/analyzer"
	"leadscout/pkg/export"
	"leadscout/pkg/logger"
	"leadscout/pkg/notify"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/storage"
	"leadscout/pkg/youtube"
)

// Components are the long-lived collaborators shared by every run
type Components struct {
	Store    storage.DedupStore
	Exporter export.Exporter
	Notifier notify.Notifier
}

// NewComponents opens the store and resolves the export chain. A missing
// Sheets credentials file downgrades to CSV-only export.
func NewComponents(ctx context.Context, cfg *config.Config) (*Components, error) {
	log := logger.GetLogger().WithField("component", "wiring")

	store, err := storage.Open(ctx, cfg.Storage, time.Now)
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}

	var primary export.Exporter
	sheetsExp, err := export.NewSheetsExporter(ctx, cfg.Export.Sheets)
	switch {
	case err == nil:
		primary = sheetsExp
	case errors.Is(err, export.ErrNotConfigured):
		log.WithError(err).Warn("Google Sheets export disabled - using CSV only")
	default:
		log.WithError(err).Warn("Google Sheets init failed - using CSV only")
	}

	return &Components{
		Store:    store,
		Exporter: export.NewFallbackExporter(primary, export.NewCSVExporter(cfg.Export.Dir)),
		Notifier: notify.NewSMTPNotifier(cfg.SMTP),
	}, nil
}

func (c *Components) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// NewScout builds a Scout with its own ledger and platform client
func NewScout(cfg *config.Config, comps *Components) (*pipeline.Scout, error) {
	ledger := cfg.NewLedger()
	client, err := youtube.NewClient(cfg.ClientConfig(), ledger, youtube.WithRetryPolicy(cfg.RetryPolicy()))
	if err != nil {
		return nil, err
	}

	return pipeline.NewScoutBuilder().
		WithConfig(cfg.Pipeline).
		WithClient(client).
		WithLedger(ledger).
		WithStore(comps.Store).
		WithAnalyzer(analyzer.New(cfg.Analyzer)).
		WithCriteria(cfg.Criteria).
		WithScoring(cfg.Weights, cfg.Thresholds).
		WithExporter(comps.Exporter).
		WithNotifier(comps.Notifier).
		Build()
}

// NewRunnerFactory yields a fresh Scout per run, so each scheduled day starts
// with a full quota budget
func NewRunnerFactory(cfg *config.Config, comps *Components) RunnerFactory {
	return func(ctx context.Context) (Runner, error) {
		return NewScout(cfg, comps)
	}
}
