package config

import (
	"strings"
	"testing"
	"time"

	"github.com/rahul4469/photo-studio/internal/ui"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "APP_ENV", "BASE_URL", "BACKEND_URL", "BACKEND_TIMEOUT",
		"UI_FLOW", "MAX_UPLOAD_MB", "SESSION_SECRET", "CSRF_SECRET", "CSRF_TRUSTED_ORIGINS",
		"SESSION_COOKIE_NAME", "SESSION_DURATION", "DATABASE_URL",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET",
		"MINIO_USE_SSL", "WATCH_DIR", "WATCH_OUT_DIR", "WATCH_INTERVAL",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" || !cfg.IsDevelopment() {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Backend.Flow != ui.FlowAnalyzeFirst {
		t.Errorf("flow = %q", cfg.Backend.Flow)
	}
	if cfg.Backend.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Watch.Interval != 2*time.Second {
		t.Errorf("watch interval = %v", cfg.Watch.Interval)
	}
	if got := cfg.Security.TrustedOrigins; len(got) != 1 || got[0] != "localhost:8080" {
		t.Errorf("trusted origins = %v", got)
	}
	if cfg.HistoryEnabled() || cfg.ArchiveEnabled() {
		t.Error("optional stores should be disabled by default")
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer should require secrets")
	}
}

func TestLoadServer(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("UI_FLOW", "direct")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("CSRF_SECRET", strings.Repeat("c", 32))
	t.Setenv("SESSION_DURATION", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}
	if !cfg.IsProduction() || !cfg.Security.SecureCookies {
		t.Error("production should use secure cookies")
	}
	if cfg.Backend.Flow != ui.FlowDirect {
		t.Errorf("flow = %q", cfg.Backend.Flow)
	}
	if cfg.Security.SessionDuration != 30*time.Minute {
		t.Errorf("session duration = %v", cfg.Security.SessionDuration)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("UI_FLOW", "sideways")
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("APP_ENV", "qa")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded with invalid settings")
	}
	for _, want := range []string{"UI_FLOW", "BACKEND_TIMEOUT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	t.Setenv("UI_FLOW", "")
	t.Setenv("BACKEND_TIMEOUT", "")
	_, err = Load()
	if err == nil || !strings.Contains(err.Error(), "APP_ENV") {
		t.Errorf("err = %v, want APP_ENV failure", err)
	}
}

func TestArchiveNeedsCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MINIO_ACCESS_KEY") {
		t.Errorf("err = %v", err)
	}
}

func TestTrustedOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://photos.example.com")
	t.Setenv("CSRF_TRUSTED_ORIGINS", " studio.internal:8443, photos.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "photos.example.com|studio.internal:8443"
	if got := strings.Join(cfg.Security.TrustedOrigins, "|"); got != want {
		t.Errorf("trusted origins = %s, want %s", got, want)
	}
}
