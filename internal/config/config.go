package config

import (
	"time"

	"leadscout/pkg/analyzer"
	"leadscout/pkg/export"
	"leadscout/pkg/logger"
	"leadscout/pkg/notify"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/quota"
	"leadscout/pkg/scoring"
	"leadscout/pkg/storage"
	"leadscout/pkg/youtube"
)

type Config struct {
	YouTube    YouTubeConfig         `mapstructure:"youtube"`
	Pipeline   pipeline.Config       `mapstructure:"pipeline"`
	Analyzer   analyzer.Config       `mapstructure:"analyzer"`
	Criteria   scoring.Criteria      `mapstructure:"criteria"`
	Weights    scoring.Weights       `mapstructure:"weights"`
	Thresholds scoring.Thresholds    `mapstructure:"thresholds"`
	Storage    storage.StorageConfig `mapstructure:"storage"`
	Export     ExportConfig          `mapstructure:"export"`
	SMTP       notify.SMTPConfig     `mapstructure:"smtp"`
	Schedule   ScheduleConfig        `mapstructure:"schedule"`
	Server     ServerConfig          `mapstructure:"server"`
	Logger     logger.Config         `mapstructure:"logger"`
}

type YouTubeConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	DailyQuota        int           `mapstructure:"daily_quota"`
	SafetyMargin      int           `mapstructure:"safety_margin"`
	Costs             QuotaCosts    `mapstructure:"costs"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// QuotaCosts are the per-call weights of each Data API list operation
type QuotaCosts struct {
	Search        int `mapstructure:"search"`
	Channels      int `mapstructure:"channels"`
	PlaylistItems int `mapstructure:"playlist_items"`
	Videos        int `mapstructure:"videos"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type ExportConfig struct {
	Dir    string              `mapstructure:"dir"`
	Sheets export.SheetsConfig `mapstructure:"sheets"`
}

type ScheduleConfig struct {
	// Time is the local HH:MM of the daily run
	Time       string `mapstructure:"time"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}

// NewLedger builds a fresh ledger for one run
func (c *Config) NewLedger() *quota.Ledger {
	costs := map[quota.Operation]int{
		quota.OpSearch:        c.YouTube.Costs.Search,
		quota.OpChannels:      c.YouTube.Costs.Channels,
		quota.OpPlaylistItems: c.YouTube.Costs.PlaylistItems,
		quota.OpVideos:        c.YouTube.Costs.Videos,
	}
	return quota.NewLedger(c.YouTube.DailyQuota, c.YouTube.SafetyMargin, costs)
}

func (c *Config) ClientConfig() youtube.Config {
	return youtube.Config{
		APIKey:            c.YouTube.APIKey,
		BaseURL:           c.YouTube.BaseURL,
		Timeout:           c.YouTube.Timeout,
		RequestsPerSecond: c.YouTube.RequestsPerSecond,
	}
}

func (c *Config) RetryPolicy() youtube.RetryPolicy {
	p := youtube.DefaultRetryPolicy()
	p.MaxAttempts = c.YouTube.Retry.MaxAttempts
	p.BaseDelay = c.YouTube.Retry.BaseDelay
	return p
}
