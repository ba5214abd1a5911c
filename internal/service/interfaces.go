package service

import (
	"context"

	"leadscout/pkg/model"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/quota"
)

// Runner executes one pipeline run. *pipeline.Scout implements it.
type Runner interface {
	Run(ctx context.Context, niches []string) (*pipeline.RunResult, error)
	State() pipeline.State
	Ledger() *quota.Ledger
}

// RunnerFactory builds a Runner with a fresh quota ledger for each run
type RunnerFactory func(ctx context.Context) (Runner, error)

// LeadStore is the part of the dedup store exposed to operators
type LeadStore interface {
	Get(ctx context.Context, channelID string) (*model.DedupRecord, error)
	UpdateStatus(ctx context.Context, channelID, status string) error
}

// RunController is what the HTTP surface drives
type RunController interface {
	Trigger(niches []string) error
	RunNow(ctx context.Context, niches []string) (*pipeline.RunResult, error)
	Status() Status
	Lead(ctx context.Context, channelID string) (*model.DedupRecord, error)
	UpdateLeadStatus(ctx context.Context, channelID, status string) error
}
