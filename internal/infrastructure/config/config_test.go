package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg = applyDefaults(cfg)

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.OEE.DayStartHour == nil || *cfg.OEE.DayStartHour != 8 {
		t.Errorf("expected day start hour 8, got %v", cfg.OEE.DayStartHour)
	}
	if got := cfg.OEE.Policy().PlannedRuntimeMinutes(); got != 660 {
		t.Errorf("expected 660 planned minutes, got %v", got)
	}
	if cfg.Realtime.TTL != 10*time.Second || cfg.Realtime.Bucket != 10*time.Second {
		t.Errorf("unexpected realtime defaults: %+v", cfg.Realtime)
	}
	if cfg.Aggregation.MaxBackfillDays != 31 || cfg.Aggregation.AutoInterval != 0 {
		t.Errorf("unexpected aggregation defaults: %+v", cfg.Aggregation)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("OEE_TIMEZONE", "UTC")
	t.Setenv("AGGREGATION_AUTO_INTERVAL", "15m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Config{}
	cfg = applyEnv(cfg)

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.OEE.Timezone != "UTC" {
		t.Errorf("expected UTC, got %s", cfg.OEE.Timezone)
	}
	if cfg.Aggregation.AutoInterval != 15*time.Minute {
		t.Errorf("expected 15m, got %v", cfg.Aggregation.AutoInterval)
	}
	if cfg.Realtime.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected redis addr %q", cfg.Realtime.Redis.Addr)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
oee:
  day_start_hour: 0
  timezone: UTC
  break_minutes: 30
realtime:
  ttl: 5s
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if *cfg.OEE.DayStartHour != 0 {
		t.Errorf("explicit 0 day start hour should be kept, got %d", *cfg.OEE.DayStartHour)
	}
	if cfg.Realtime.TTL != 5*time.Second {
		t.Errorf("expected 5s ttl, got %v", cfg.Realtime.TTL)
	}
	if got := cfg.OEE.Policy().PlannedRuntimeMinutes(); got != 690 {
		t.Errorf("expected 690 planned minutes, got %v", got)
	}

	resolver, err := cfg.OEE.Resolver()
	if err != nil {
		t.Fatal(err)
	}
	w := resolver.Windows(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	if w[0].Start.Hour() != 0 || w[1].Start.Hour() != 12 {
		t.Errorf("unexpected windows: %v", w)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.HTTP.Addr == "" {
		t.Error("defaults not applied")
	}
}

func TestOEEConfig_BadTimezone(t *testing.T) {
	if _, err := (OEEConfig{Timezone: "Mars/Olympus"}).Resolver(); err == nil {
		t.Error("expected timezone error")
	}
}
