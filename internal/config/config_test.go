package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"implied-inflation/internal/inflation"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("unexpected interval %s", cfg.Scheduler.Interval)
	}
	if cfg.Export.Locale != "pt-BR" || cfg.Export.DecimalPlaces != 2 {
		t.Fatalf("unexpected export defaults %+v", cfg.Export)
	}
	opts := cfg.CalculatorOptions()
	if opts.Pattern != inflation.PatternAnchored || opts.Metric != inflation.MetricOrdinal {
		t.Fatalf("unexpected matching defaults %+v", opts)
	}
	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("matching:\n  ipca_pattern: substring\n  distance_metric: days\ntesouro:\n  cache_ttl: 10m\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INFLACAO_EXPORT_LOCALE", "en-US")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tesouro.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl %s", cfg.Tesouro.CacheTTL)
	}
	opts := cfg.CalculatorOptions()
	if opts.Pattern != inflation.PatternSubstring || opts.Metric != inflation.MetricDays {
		t.Fatalf("file values not applied: %+v", opts)
	}
	if cfg.Export.Locale != "en-US" {
		t.Fatalf("env override not applied: %q", cfg.Export.Locale)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("matching:\n  distance_metric: weeks\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown metric should be rejected")
	}
}

func TestValidateTelegram(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram without token should fail")
	}
	cfg.Alerting.Telegram.BotToken = "token"
	cfg.Alerting.Telegram.ChatID = "chat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete telegram config should pass: %v", err)
	}
}
