package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{
  "telegram": {
    "token": "123:abc",
    "unknown_field": 1
  }
}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown field") {
		t.Fatalf("expected unknown field error, got: %v", err)
	}
}

func TestLoadConfigRejectsTrailingJSONContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{"telegram":{"token":"123:abc"}}{"extra":true}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatalf("expected trailing json content error")
	}
	if !strings.Contains(err.Error(), "trailing JSON content") {
		t.Fatalf("expected trailing JSON content error, got: %v", err)
	}
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{
  "telegram": {"token": "123:abc"},
  "admin": {"ids": [42, 43]},
  "delivery": {"send_interval_ms": 250},
  "tokens": {"ttl_hours": 72}
}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token mismatch: %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.LinkHost != "t.me" {
		t.Fatalf("link host default lost: %q", cfg.Telegram.LinkHost)
	}
	if !cfg.IsAdmin(42) || !cfg.IsAdmin(43) || cfg.IsAdmin(44) {
		t.Fatalf("admin ids mismatch: %v", cfg.Admin.IDs)
	}
	if cfg.Delivery.SendIntervalMS != 250 {
		t.Fatalf("send interval mismatch: %d", cfg.Delivery.SendIntervalMS)
	}
	if cfg.Tokens.TTLHours != 72 {
		t.Fatalf("ttl mismatch: %d", cfg.Tokens.TTLHours)
	}
	if cfg.Tokens.SweepSchedule != "@hourly" {
		t.Fatalf("sweep schedule default lost: %q", cfg.Tokens.SweepSchedule)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{"telegram":{"token":"file-token"},"admin":{"ids":[1]}}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TELEPOST_TELEGRAM_TOKEN", "env-token")
	t.Setenv("TELEPOST_ADMIN_IDS", "7,8")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("env override lost: %q", cfg.Telegram.Token)
	}
	if len(cfg.Admin.IDs) != 2 || cfg.Admin.IDs[0] != 7 || cfg.Admin.IDs[1] != 8 {
		t.Fatalf("admin ids env override lost: %v", cfg.Admin.IDs)
	}
}

func TestValidateRequiresTokenAndAdmins(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for empty token")
	}

	cfg.Telegram.Token = "123:abc"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing admins")
	}

	cfg.Admin.IDs = []int64{1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
