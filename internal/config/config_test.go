package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.MinScore != 2 || cfg.Thresholds.ReminderDays != 2 {
		t.Errorf("thresholds = %+v, want defaults 2/2", cfg.Thresholds)
	}
	if cfg.Thresholds.CloseMissingRuns != 3 || cfg.Thresholds.CloseNotSeenDays != 7 {
		t.Errorf("close thresholds = %+v, want 3/7", cfg.Thresholds)
	}
	if cfg.LockTTL != 2*time.Hour {
		t.Errorf("lock ttl = %v, want 2h", cfg.LockTTL)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("notification type = %q, want log", cfg.Notification.Type)
	}
	if len(cfg.Aggregators) != 3 {
		t.Errorf("aggregators = %v, want the three default portals", cfg.Aggregators)
	}
	if cfg.Paths.State == "" || cfg.Paths.Tracker == "" || cfg.Paths.Listings == "" {
		t.Errorf("default paths incomplete: %+v", cfg.Paths)
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  state: /tmp/state.json
thresholds:
  min_score: 5
  close_missing_runs: 0
lock_ttl: 45m
aggregator_sources: [foo]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.State != "/tmp/state.json" {
		t.Errorf("state path = %q", cfg.Paths.State)
	}
	if cfg.Paths.Tracker != "generated/job_tracker.csv" {
		t.Errorf("tracker path = %q, want default kept", cfg.Paths.Tracker)
	}
	if cfg.Thresholds.MinScore != 5 {
		t.Errorf("min_score = %d, want 5", cfg.Thresholds.MinScore)
	}
	if cfg.Thresholds.CloseMissingRuns != 0 {
		t.Errorf("close_missing_runs = %d, want explicit 0 honored", cfg.Thresholds.CloseMissingRuns)
	}
	if cfg.Thresholds.ReminderDays != 2 {
		t.Errorf("reminder_days = %d, want default kept", cfg.Thresholds.ReminderDays)
	}
	if cfg.LockTTL != 45*time.Minute {
		t.Errorf("lock ttl = %v, want 45m", cfg.LockTTL)
	}
	if len(cfg.Aggregators) != 1 || cfg.Aggregators[0] != "foo" {
		t.Errorf("aggregators = %v, want [foo]", cfg.Aggregators)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("JOBRADAR_TEST_HOOK", "https://hooks.example.com/T00/B00")
	path := writeConfig(t, `
notification:
  type: webhook
  webhook_url: ${JOBRADAR_TEST_HOOK}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notification.WebhookURL != "https://hooks.example.com/T00/B00" {
		t.Errorf("webhook_url = %q, env not expanded", cfg.Notification.WebhookURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"negative min score", "thresholds:\n  min_score: -1\n", "min_score"},
		{"negative reminder", "thresholds:\n  reminder_days: -1\n", "reminder_days"},
		{"negative close runs", "thresholds:\n  close_missing_runs: -2\n", "close_missing_runs"},
		{"bad ttl", "lock_ttl: soon\n", "lock_ttl"},
		{"zero ttl", "lock_ttl: 0s\n", "lock_ttl"},
		{"webhook without url", "notification:\n  type: webhook\n", "webhook_url"},
		{"unknown notifier", "notification:\n  type: carrier-pigeon\n", "notification.type"},
		{"not yaml", "{{{{\n", "parse config"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.yaml))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, c.wantErr)
			}
		})
	}
}
