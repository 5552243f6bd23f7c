package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
telegram:
  admin_user_ids: [111, 222]
  poll_timeout: 10s
scheduler:
  tick_interval: 60s
  shift_hours: 3
  reminder_lead: 5m
storage:
  driver: sqlite
  path: ./data/titles.db
web:
  enabled: true
  addr: ":8080"
`)
	m := NewManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.Telegram.AdminUserIDs; len(got) != 2 || got[0] != 111 || got[1] != 222 {
		t.Fatalf("admin ids = %v", got)
	}
	if cfg.Scheduler.ShiftHours != 3 {
		t.Fatalf("shift_hours = %d", cfg.Scheduler.ShiftHours)
	}
	if !cfg.Web.Enabled || cfg.Web.Addr != ":8080" {
		t.Fatalf("web = %+v", cfg.Web)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
scheduler:
  tick_interval: 60s
  frobnicate: yes
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseJSONPassthrough(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"storage":{"driver":"memory"}}`)
	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadOverlaysEnvSecrets(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: from-file
`)
	t.Setenv(envTelegramToken, "from-env")
	t.Setenv(envWebhookURL, "https://example.invalid/hook")
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Notify.WebhookURL != "https://example.invalid/hook" {
		t.Fatalf("webhook = %q", cfg.Notify.WebhookURL)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"45s", 45 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"-1s", 0, true},
		{"banana", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("scheduler.tick_interval", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "90s", time.Minute); err != nil || d != 90*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
}

func TestCommitAndGetSkipRedundantPublish(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	cfg := &Config{}
	m.Commit(cfg)
	if m.Get() != cfg {
		t.Fatal("Get returned different config")
	}
	if h := hashConfig(cfg); h == 0 || h != m.lastHash {
		t.Fatalf("hash mismatch: %d vs %d", h, m.lastHash)
	}
}
