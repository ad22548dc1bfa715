package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
  rate_limit_rps: 5
database:
  driver: postgres
  dsn: postgres://localhost/clinicgraph?sslmode=disable
crawler:
  max_pages: 100
  request_delay: 2s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Crawler.MaxPages != 100 {
		t.Fatalf("max_pages = %d", cfg.Crawler.MaxPages)
	}
	if cfg.Crawler.RequestDelay != 2*time.Second {
		t.Fatalf("request_delay = %v", cfg.Crawler.RequestDelay)
	}
	// fields absent from the file keep their defaults
	if cfg.Crawler.MaxDepth != 5 {
		t.Fatalf("max_depth = %d", cfg.Crawler.MaxDepth)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLINICGRAPH_PORT", "7001")
	t.Setenv("LLM_PROVIDER", "anthropic")

	cfg := LoadOrDefault("")
	if cfg.Server.Port != 7001 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("provider = %q", cfg.LLM.Provider)
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidateRequiresPostgresDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}
