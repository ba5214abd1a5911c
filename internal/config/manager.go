package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"leadscout/pkg/analyzer"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/quota"
	"leadscout/pkg/scoring"
	"leadscout/pkg/storage"
	"leadscout/pkg/youtube"
)

const envPrefix = "LEADSCOUT"

// plainEnv maps config keys to the unprefixed variable names used in .env files
var plainEnv = map[string]string{
	"youtube.api_key":                "YOUTUBE_API_KEY",
	"smtp.host":                      "SMTP_HOST",
	"smtp.port":                      "SMTP_PORT",
	"smtp.user":                      "SMTP_USER",
	"smtp.password":                  "SMTP_PASSWORD",
	"smtp.to":                        "NOTIFICATION_EMAIL",
	"storage.postgres_dsn":           "DATABASE_URL",
	"export.sheets.credentials_file": "GOOGLE_SHEETS_CREDENTIALS_FILE",
	"export.sheets.sheet_name":       "GOOGLE_SHEET_NAME",
}

type manager struct {
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	configPath string
	envFile    string
}

// NewManager reads .env from the working directory, if present, before the
// environment is consulted
func NewManager() Manager {
	return &manager{envFile: ".env"}
}

func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath
	config, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viper == nil {
		return fmt.Errorf("config not loaded")
	}
	config, err := m.load()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) load() (*Config, error) {
	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", m.envFile, err)
		}
	}

	m.viper = viper.New()
	if err := m.setupViper(m.configPath); err != nil {
		return nil, fmt.Errorf("failed to setup viper: %w", err)
	}

	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (m *manager) setupViper(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file %s: %w", configPath, err)
		}
		m.viper.SetConfigFile(configPath)
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	for key, name := range plainEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := m.viper.BindEnv(key, prefixed, name); err != nil {
			return fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	setDefaults(m.viper)
	return nil
}

func setDefaults(v *viper.Viper) {
	costs := quota.DefaultCosts()
	v.SetDefault("youtube.base_url", youtube.DefaultBaseURL)
	v.SetDefault("youtube.timeout", 30*time.Second)
	v.SetDefault("youtube.requests_per_second", 0)
	v.SetDefault("youtube.daily_quota", quota.DefaultDailyLimit)
	v.SetDefault("youtube.safety_margin", quota.DefaultSafetyMargin)
	v.SetDefault("youtube.costs.search", costs[quota.OpSearch])
	v.SetDefault("youtube.costs.channels", costs[quota.OpChannels])
	v.SetDefault("youtube.costs.playlist_items", costs[quota.OpPlaylistItems])
	v.SetDefault("youtube.costs.videos", costs[quota.OpVideos])
	v.SetDefault("youtube.retry.max_attempts", 3)
	v.SetDefault("youtube.retry.base_delay", 5*time.Second)

	p := pipeline.DefaultConfig()
	v.SetDefault("pipeline.niches", p.Niches)
	v.SetDefault("pipeline.search_results_per_niche", p.SearchResultsPerNiche)
	v.SetDefault("pipeline.max_channels_per_run", p.MaxChannelsPerRun)
	v.SetDefault("pipeline.max_videos_to_scan", p.MaxVideosToScan)
	v.SetDefault("pipeline.quota_floor", p.QuotaFloor)
	v.SetDefault("pipeline.report_top_n", p.ReportTopN)

	v.SetDefault("analyzer.recent_window", analyzer.DefaultRecentWindow)
	v.SetDefault("analyzer.short_form_max_seconds", analyzer.DefaultShortFormMaxSeconds)

	c := scoring.DefaultCriteria()
	v.SetDefault("criteria.min_subscribers", c.MinSubscribers)
	v.SetDefault("criteria.max_subscribers", c.MaxSubscribers)
	v.SetDefault("criteria.max_shorts", c.MaxShorts)
	v.SetDefault("criteria.min_longform", c.MinLongform)
	v.SetDefault("criteria.max_days_since_upload", c.MaxDaysSinceUpload)
	v.SetDefault("criteria.allowed_countries", c.AllowedCountries)
	v.SetDefault("criteria.allowed_languages", c.AllowedLanguages)

	w := scoring.DefaultWeights()
	v.SetDefault("weights.subscribers", w.Subscribers)
	v.SetDefault("weights.engagement", w.Engagement)
	v.SetDefault("weights.consistency", w.Consistency)
	v.SetDefault("weights.views_ratio", w.ViewsRatio)
	v.SetDefault("weights.niche_fit", w.NicheFit)

	t := scoring.DefaultThresholds()
	v.SetDefault("thresholds.audience_low", t.AudienceLow)
	v.SetDefault("thresholds.audience_high", t.AudienceHigh)
	v.SetDefault("thresholds.audience_taper_span", t.AudienceTaperSpan)
	v.SetDefault("thresholds.excellent_engagement", t.ExcellentEngagement)
	v.SetDefault("thresholds.great_cadence", t.GreatCadence)
	v.SetDefault("thresholds.target_reach_ratio", t.TargetReachRatio)

	v.SetDefault("storage.driver", "")
	v.SetDefault("storage.path", storage.DefaultSQLitePath)
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.sheets.credentials_file", "credentials.json")
	v.SetDefault("export.sheets.sheet_name", "YouTube Leads")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.to", "")

	v.SetDefault("schedule.time", "03:00")
	v.SetDefault("schedule.run_on_start", true)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.time_format", "15:04:05")
	v.SetDefault("logger.dir", "logs")
}

// Validate enforces the startup preconditions. The API key is the only
// credential whose absence stops the program.
func Validate(config *Config) error {
	if config.YouTube.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY not set - add it to your .env file")
	}
	if config.YouTube.DailyQuota <= 0 {
		return fmt.Errorf("daily_quota must be positive")
	}
	if config.YouTube.SafetyMargin < 0 || config.YouTube.SafetyMargin >= config.YouTube.DailyQuota {
		return fmt.Errorf("safety_margin must be in [0, daily_quota): %d", config.YouTube.SafetyMargin)
	}
	if config.YouTube.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if err := config.Weights.Validate(); err != nil {
		return err
	}
	if config.Criteria.MinSubscribers > config.Criteria.MaxSubscribers {
		return fmt.Errorf("criteria.min_subscribers exceeds max_subscribers")
	}
	if config.Thresholds.AudienceLow <= 0 || config.Thresholds.AudienceHigh <= config.Thresholds.AudienceLow {
		return fmt.Errorf("thresholds.audience_high must exceed audience_low > 0")
	}
	if config.Pipeline.SearchResultsPerNiche <= 0 || config.Pipeline.MaxChannelsPerRun <= 0 || config.Pipeline.MaxVideosToScan <= 0 {
		return fmt.Errorf("pipeline limits must be positive")
	}
	if _, err := time.Parse("15:04", config.Schedule.Time); err != nil {
		return fmt.Errorf("invalid schedule.time %q: want HH:MM", config.Schedule.Time)
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	return nil
}
