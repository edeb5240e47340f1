package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the jobradar run.
type Config struct {
	Paths        PathConfig
	Thresholds   ThresholdConfig
	Aggregators  []string // portal names whose records are force-closed
	LockTTL      time.Duration
	Notification NotificationConfig
}

// PathConfig holds the files a run touches.
type PathConfig struct {
	State    string `yaml:"state"`    // lifecycle store (JSON)
	Tracker  string `yaml:"tracker"`  // manual tracker (CSV)
	Listings string `yaml:"listings"` // collector export consumed as input
	RunLog   string `yaml:"run_log"`  // per-run statistics (SQLite)
	Lock     string `yaml:"lock"`     // run lock file
}

// ThresholdConfig holds the lifecycle tuning values handed to the engine.
type ThresholdConfig struct {
	MinScore         int  `yaml:"min_score"`           // minimum score for notification eligibility
	ReminderDays     int  `yaml:"reminder_days"`       // interval between reminders
	ReminderDaily    bool `yaml:"reminder_daily"`      // remind on every run
	CloseMissingRuns int  `yaml:"close_missing_runs"`  // close after N absent runs, 0 disables
	CloseNotSeenDays int  `yaml:"close_not_seen_days"` // close after N days unseen, 0 disables
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "webhook"
	WebhookURL string `yaml:"webhook_url"` // required if type is "webhook"
}

// rawConfig is used for YAML unmarshaling (duration as string, pointers so
// absent values can fall back to defaults).
type rawConfig struct {
	Paths        PathConfig         `yaml:"paths"`
	Thresholds   rawThresholds      `yaml:"thresholds"`
	Aggregators  []string           `yaml:"aggregator_sources"`
	LockTTL      string             `yaml:"lock_ttl"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawThresholds struct {
	MinScore         *int `yaml:"min_score"`
	ReminderDays     *int `yaml:"reminder_days"`
	ReminderDaily    bool `yaml:"reminder_daily"`
	CloseMissingRuns *int `yaml:"close_missing_runs"`
	CloseNotSeenDays *int `yaml:"close_not_seen_days"`
}

// Load reads and parses the YAML config file at path, fills defaults,
// validates it, and returns Config. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if raw.Paths.State != "" {
		cfg.Paths.State = raw.Paths.State
	}
	if raw.Paths.Tracker != "" {
		cfg.Paths.Tracker = raw.Paths.Tracker
	}
	if raw.Paths.Listings != "" {
		cfg.Paths.Listings = raw.Paths.Listings
	}
	if raw.Paths.RunLog != "" {
		cfg.Paths.RunLog = raw.Paths.RunLog
	}
	if raw.Paths.Lock != "" {
		cfg.Paths.Lock = raw.Paths.Lock
	}

	if raw.Thresholds.MinScore != nil {
		cfg.Thresholds.MinScore = *raw.Thresholds.MinScore
	}
	if raw.Thresholds.ReminderDays != nil {
		cfg.Thresholds.ReminderDays = *raw.Thresholds.ReminderDays
	}
	cfg.Thresholds.ReminderDaily = raw.Thresholds.ReminderDaily
	if raw.Thresholds.CloseMissingRuns != nil {
		cfg.Thresholds.CloseMissingRuns = *raw.Thresholds.CloseMissingRuns
	}
	if raw.Thresholds.CloseNotSeenDays != nil {
		cfg.Thresholds.CloseNotSeenDays = *raw.Thresholds.CloseNotSeenDays
	}

	if raw.Aggregators != nil {
		cfg.Aggregators = raw.Aggregators
	}
	if raw.LockTTL != "" {
		ttl, err := time.ParseDuration(raw.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("parse lock_ttl %q: %w", raw.LockTTL, err)
		}
		cfg.LockTTL = ttl
	}
	if raw.Notification.Type != "" {
		cfg.Notification = raw.Notification
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults mirrors the values the original agent shipped with.
func defaults() *Config {
	return &Config{
		Paths: PathConfig{
			State:    "generated/job_state.json",
			Tracker:  "generated/job_tracker.csv",
			Listings: "generated/job_listings.json",
			RunLog:   "generated/runs.db",
			Lock:     "generated/run.lock",
		},
		Thresholds: ThresholdConfig{
			MinScore:         2,
			ReminderDays:     2,
			CloseMissingRuns: 3,
			CloseNotSeenDays: 7,
		},
		Aggregators:  []string{"careerjet", "jobrapido", "jooble"},
		LockTTL:      2 * time.Hour,
		Notification: NotificationConfig{Type: "log"},
	}
}

// validate rejects out-of-range values at startup; a bad threshold must
// never surface mid-run.
func validate(cfg *Config) error {
	if cfg.Thresholds.MinScore < 0 {
		return fmt.Errorf("thresholds.min_score must not be negative, got %d", cfg.Thresholds.MinScore)
	}
	if cfg.Thresholds.ReminderDays < 0 {
		return fmt.Errorf("thresholds.reminder_days must not be negative, got %d", cfg.Thresholds.ReminderDays)
	}
	if cfg.Thresholds.CloseMissingRuns < 0 {
		return fmt.Errorf("thresholds.close_missing_runs must not be negative, got %d", cfg.Thresholds.CloseMissingRuns)
	}
	if cfg.Thresholds.CloseNotSeenDays < 0 {
		return fmt.Errorf("thresholds.close_not_seen_days must not be negative, got %d", cfg.Thresholds.CloseNotSeenDays)
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive, got %v", cfg.LockTTL)
	}

	switch cfg.Notification.Type {
	case "", "log":
	case "webhook":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"webhook\"")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"webhook\", got %q", cfg.Notification.Type)
	}

	for _, p := range []struct{ name, val string }{
		{"paths.state", cfg.Paths.State},
		{"paths.tracker", cfg.Paths.Tracker},
		{"paths.listings", cfg.Paths.Listings},
	} {
		if p.val == "" {
			return fmt.Errorf("%s must not be empty", p.name)
		}
	}

	return nil
}
