package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("sleepiq:\n  username: a@b.c\n  password: secret\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := cfg.Poll.Interval.Duration(); got != 60*time.Second {
		t.Errorf("Poll.Interval = %v, want 60s", got)
	}
	if got := cfg.Poll.MinRefresh.Duration(); got != 5*time.Second {
		t.Errorf("Poll.MinRefresh = %v, want 5s", got)
	}
	if got := cfg.SleepIQ.Timeout.Duration(); got != 30*time.Second {
		t.Errorf("SleepIQ.Timeout = %v, want 30s", got)
	}
	if cfg.MQTT.TopicPrefix != "sleepiq" || cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT prefixes = %q/%q", cfg.MQTT.TopicPrefix, cfg.MQTT.DiscoveryPrefix)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Script != "" {
		t.Errorf("Script = %q, want empty", cfg.Script)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("SLEEPIQ_PASSWORD", "from-env")

	cfg, err := Parse([]byte(`
sleepiq:
  username: ${SLEEPIQ_USER:fallback@example.com}
  password: ${SLEEPIQ_PASSWORD}
poll:
  interval: 2m
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.SleepIQ.Username != "fallback@example.com" {
		t.Errorf("Username = %q, want default", cfg.SleepIQ.Username)
	}
	if cfg.SleepIQ.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.SleepIQ.Password)
	}
	if got := cfg.Poll.Interval.Duration(); got != 2*time.Minute {
		t.Errorf("Poll.Interval = %v, want 2m", got)
	}
}

func TestParse_BadDuration(t *testing.T) {
	if _, err := Parse([]byte("poll:\n  interval: soon\n")); err == nil {
		t.Error("Parse() should reject an invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing_credentials", "sleepiq:\n  username: a@b.c\n", "sleepiq.username"},
		{"short_interval", "sleepiq: {username: a, password: b}\npoll: {interval: 100ms}\n", "poll.interval"},
		{"mqtt_without_broker", "sleepiq: {username: a, password: b}\nmqtt: {enabled: true}\n", "mqtt.broker"},
		{"influx_without_bucket", "sleepiq: {username: a, password: b}\ninfluxdb: {enabled: true, url: 'http://x'}\n", "influxdb.url"},
		{"negative_min_refresh", "sleepiq: {username: a, password: b}\npoll: {min_refresh: -1s}\n", "poll.min_refresh"},
		{"negative_cleanup_interval", "sleepiq: {username: a, password: b}\nledger: {cleanup_interval: -1h}\n", "ledger.cleanup_interval"},
		{"negative_retention", "sleepiq: {username: a, password: b}\nledger: {retention_days: -3}\n", "ledger.retention_days"},
		{"negative_flush_interval", "sleepiq: {username: a, password: b}\ninfluxdb: {flush_interval: -10s}\n", "influxdb.flush_interval"},
		{"negative_shutdown_timeout", "sleepiq: {username: a, password: b}\nshutdown_timeout: -5s\n", "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: /tmp/x.sqlite\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/x.sqlite" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
