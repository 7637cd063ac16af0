package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "PORT", "DB_PATH", "SESSION_SECRET", "ADMIN_EMAIL", "ADMIN_PASSWORD",
		"EBAY_APP_ID", "EBAY_CERT_ID", "MAILGUN_API_KEY", "MAILGUN_DOMAIN", "SEARCH_FULL",
	} {
		t.Setenv(key, "")
	}
}

func hasWarning(cfg Config, substr string) bool {
	for _, w := range cfg.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != defaultPort || cfg.Server.DBPath != defaultDBPath {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.TCOAssumptions != DefaultAssumptions() {
		t.Fatalf("unexpected assumptions: %+v", cfg.TCOAssumptions)
	}
	if !hasWarning(cfg, "not found") || !hasWarning(cfg, "SESSION_SECRET") {
		t.Fatalf("expected warnings, got %v", cfg.Warnings)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev mode by default")
	}
}

func TestLoadFile_MergesOverDefaultsAndExpandsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_EBAY_APP", "app-123")

	path := writeConfig(t, `
ebay:
  app_id: ${TEST_EBAY_APP}
  cert_id: ${TEST_EBAY_CERT_MISSING}
search:
  keywords: "optiplex micro, elitedesk mini ,, thinkcentre tiny"
  max_price: 250
tco_assumptions:
  kwh_cost: 0.25
  lifespan_years: 4
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.EBay.AppID != "app-123" {
		t.Fatalf("app id = %q", cfg.EBay.AppID)
	}
	if !hasWarning(cfg, "TEST_EBAY_CERT_MISSING") {
		t.Fatalf("expected missing variable warning, got %v", cfg.Warnings)
	}
	if err := cfg.RequireEBay(); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("RequireEBay = %v, want ErrMissingCredentials", err)
	}

	terms := cfg.Search.Terms()
	if len(terms) != 3 || terms[1] != "elitedesk mini" {
		t.Fatalf("terms = %q", terms)
	}
	if cfg.Search.MaxPrice != 250 || cfg.Search.CategoryID != "179" {
		t.Fatalf("search config not merged: %+v", cfg.Search)
	}

	a := cfg.TCOAssumptions
	if a.KWhCost != 0.25 || a.LifespanYears != 4 || a.ShippingCostNonTCPU != 35 {
		t.Fatalf("assumptions not merged over defaults: %+v", a)
	}
	if !hasWarning(cfg, "tco_assumptions.required_ram_gb") {
		t.Fatalf("expected missing assumption warning, got %v", cfg.Warnings)
	}
}

func TestLoadFile_TruncatesWholeNumberAssumptions(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
tco_assumptions:
  kwh_cost: 0.125
  lifespan_years: 2.5
  required_ram_gb: 15.9
  required_storage_gb: 255.5
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	a := cfg.TCOAssumptions
	if a.LifespanYears != 2 || a.RequiredRAMGB != 15 || a.RequiredStorageGB != 255 {
		t.Fatalf("assumptions not normalized: %+v", a)
	}
	if a.KWhCost != 0.125 {
		t.Fatalf("kwh cost = %v, want 0.125", a.KWhCost)
	}
}

func TestLoadFile_EnvOverridesWin(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SEARCH_FULL", "true")

	path := writeConfig(t, "server:\n  port: \"7000\"\nlog_level: warn\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != "9999" || cfg.LogLevel != "debug" || cfg.Server.SessionSecret != "s3cret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.IsDev() {
		t.Fatalf("production env reported as dev")
	}
	if !cfg.Search.FullSearch {
		t.Fatalf("SEARCH_FULL not applied")
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "server: [unclosed\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_ReadsDotEnvWithoutOverwriting(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "1111")
	os.Unsetenv("DB_PATH")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=2222\nDB_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv(configPathEnv, filepath.Join(dir, "missing.yaml"))
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "1111" {
		t.Fatalf("port = %q, want existing env to win", cfg.Server.Port)
	}
	if cfg.Server.DBPath != "/tmp/from-dotenv.db" {
		t.Fatalf("db path = %q, want value from .env", cfg.Server.DBPath)
	}
}
