package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaultsWithToken(t *testing.T) {
	cfg, err := loadWith("", env(map[string]string{"FIELDOPS_API_TOKEN": "secret"}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("default port: %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("default backend: %q", cfg.Store.Backend)
	}
	if !cfg.Server.Metrics {
		t.Error("metrics should default on")
	}
}

func TestMissingTokenIsFatal(t *testing.T) {
	_, err := loadWith("", env(nil))
	if err == nil {
		t.Fatal("expected error for missing access key")
	}
	if !strings.Contains(err.Error(), "FIELDOPS_API_TOKEN") {
		t.Errorf("error should name the env var: %v", err)
	}
}

func TestFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
api_token = "file-token"

[server]
port = 9999

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := loadWith(path, env(map[string]string{"FIELDOPS_PORT": "4321"}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.APIToken != "file-token" {
		t.Errorf("file token not loaded: %q", cfg.APIToken)
	}
	if cfg.Server.Port != 4321 {
		t.Errorf("env must override file, got port %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("file value lost: %q", cfg.Log.Level)
	}
}

func TestPostgresBackendRequiresURL(t *testing.T) {
	_, err := loadWith("", env(map[string]string{
		"FIELDOPS_API_TOKEN":     "secret",
		"FIELDOPS_STORE_BACKEND": BackendPostgres,
	}))
	if err == nil {
		t.Fatal("expected error for postgres backend without URL")
	}

	cfg, err := loadWith("", env(map[string]string{
		"FIELDOPS_API_TOKEN":     "secret",
		"FIELDOPS_STORE_BACKEND": BackendPostgres,
		"FIELDOPS_POSTGRES_URL":  "postgres://localhost/fieldops",
	}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Store.PostgresURL == "" {
		t.Error("postgres URL not applied")
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := loadWith("", env(map[string]string{
		"FIELDOPS_API_TOKEN":     "secret",
		"FIELDOPS_STORE_BACKEND": "mongodb",
	}))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestEndpointDefaultsToLocalPort(t *testing.T) {
	cfg, err := loadWith("", env(map[string]string{"FIELDOPS_API_TOKEN": "secret"}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Endpoint() != "http://127.0.0.1:4200" {
		t.Errorf("default endpoint: %q", cfg.Endpoint())
	}

	cfg.Remote.Endpoint = "https://crm.example.com"
	if cfg.Endpoint() != "https://crm.example.com" {
		t.Errorf("explicit endpoint not used: %q", cfg.Endpoint())
	}
}
