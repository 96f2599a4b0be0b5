package config

import (
	"strings"
	"testing"
	"time"
)

// setRequiredEnv provides the settings validate() insists on but that have
// no safe default (object-store credentials).
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "test-access-key")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "test-secret-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api port = %d", cfg.API.Port)
	}
	if !cfg.Render.BrowserEnabled {
		t.Error("browser rendering should default to enabled")
	}
	if !cfg.Render.PDFPrintEnabled {
		t.Error("pdf printing should default to enabled")
	}
	if cfg.Render.DeviceScaleFactor != 3.0 {
		t.Errorf("device scale factor = %v", cfg.Render.DeviceScaleFactor)
	}
	if cfg.Render.MaxConcurrent != 2 {
		t.Errorf("max concurrent = %d", cfg.Render.MaxConcurrent)
	}
	if cfg.Render.NavigationTimeout != 30*time.Second {
		t.Errorf("navigation timeout = %v", cfg.Render.NavigationTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RENDER_BROWSER_ENABLED", "false")
	t.Setenv("RENDER_PDF_PRINT_ENABLED", "false")
	t.Setenv("API_PORT", "9090")
	t.Setenv("POSTGRES_DB", "certs_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Render.BrowserEnabled {
		t.Error("RENDER_BROWSER_ENABLED=false not applied")
	}
	if cfg.Render.PDFPrintEnabled {
		t.Error("RENDER_PDF_PRINT_ENABLED=false not applied")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d", cfg.API.Port)
	}
	if cfg.Database.Name != "certs_test" {
		t.Errorf("database name = %q", cfg.Database.Name)
	}
}

func TestLoadRequiresObjectStoreCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without object-store credentials")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Name:     "certforge",
		User:     "app",
		Password: "secret",
		SSLMode:  "disable",
	}
	dsn := d.DSN()
	for _, part := range []string{"host=db", "port=5432", "dbname=certforge", "user=app", "password=secret", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "redis", Port: 6379}
	if got := r.Addr(); got != "redis:6379" {
		t.Errorf("addr = %q", got)
	}
}
