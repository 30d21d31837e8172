package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rahul4469/photo-studio/internal/ui"
)

type Config struct {
	// HTTP server
	Server ServerConfig

	// Enhancement backend
	Backend BackendConfig

	// Optional history database
	Database DatabaseConfig

	// Sessions and CSRF
	Security SecurityConfig

	// Optional MinIO archive for watcher outputs
	Storage StorageConfig

	// Folder watcher used by photoctl
	Watch WatchConfig

	Log LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	BaseURL     string
}

// BackendConfig points at the enhancement service.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
	Flow    ui.Flow
	// MaxUploadBytes caps request bodies; files above ui.MaxFileSize are
	// still rejected with the size-limit message.
	MaxUploadBytes int64
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables enhancement history.
type DatabaseConfig struct {
	URL string
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	SessionSecret     string
	CSRFSecret        string
	SessionCookieName string
	SessionDuration   time.Duration
	SecureCookies     bool // true in production
	// TrustedOrigins are extra hosts (host[:port]) allowed to post forms,
	// e.g. when a proxy rewrites Host.
	TrustedOrigins    []string
}

// StorageConfig holds the MinIO archive settings. An empty Endpoint
// disables archiving.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// WatchConfig holds folder watcher settings.
type WatchConfig struct {
	Dir      string
	OutDir   string
	Interval time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text; empty picks by environment
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// HistoryEnabled reports whether a database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.Database.URL != ""
}

// ArchiveEnabled reports whether a MinIO endpoint is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Storage.Endpoint != ""
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:        getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8080"),
	}

	flowName := getEnvOrDefault("UI_FLOW", string(ui.FlowAnalyzeFirst))
	flow, ok := ui.ParseFlow(flowName)
	if !ok {
		errs = append(errs, fmt.Errorf("UI_FLOW must be one of: analyze, direct (got: %s)", flowName))
	}

	maxUploadMB, err := strconv.ParseInt(getEnvOrDefault("MAX_UPLOAD_MB", "64"), 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err))
	}

	cfg.Backend = BackendConfig{
		URL:            getEnvOrDefault("BACKEND_URL", "http://localhost:5000"),
		Timeout:        getDuration("BACKEND_TIMEOUT", 2*time.Minute, &errs),
		Flow:           flow,
		MaxUploadBytes: maxUploadMB << 20,
	}

	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	cfg.Security = SecurityConfig{
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		CSRFSecret:        os.Getenv("CSRF_SECRET"),
		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "photo_studio_session"),
		SessionDuration:   getDuration("SESSION_DURATION", 2*time.Hour, &errs),
		SecureCookies:     cfg.Server.Environment == "production",
		TrustedOrigins:    trustedOrigins(cfg.Server.BaseURL, os.Getenv("CSRF_TRUSTED_ORIGINS")),
	}

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MINIO_USE_SSL: %w", err))
	}
	cfg.Storage = StorageConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    getEnvOrDefault("MINIO_BUCKET", "enhanced-photos"),
		UseSSL:    useSSL,
	}

	cfg.Watch = WatchConfig{
		Dir:      getEnvOrDefault("WATCH_DIR", "input_photos"),
		OutDir:   getEnvOrDefault("WATCH_OUT_DIR", "enhanced_photos"),
		Interval: getDuration("WATCH_INTERVAL", 2*time.Second, &errs),
	}

	cfg.Log = LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: os.Getenv("LOG_FORMAT"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the settings every binary needs. Server-only secrets
// are checked by ValidateServer.
func (c *Config) validate() error {
	var errs []error

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL must be an absolute URL (got: %s)", c.Backend.URL))
	}

	if c.Backend.MaxUploadBytes < ui.MaxFileSize {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be at least %d", ui.MaxFileSize>>20))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text (got: %s)", c.Log.Format))
	}

	if c.ArchiveEnabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set"))
	}

	if c.Watch.Interval <= 0 {
		errs = append(errs, errors.New("WATCH_INTERVAL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

// ValidateServer checks the secrets the web studio needs.
func (c *Config) ValidateServer() error {
	var errs []error

	if c.Security.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	} else if len(c.Security.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if c.Security.SessionDuration <= 0 {
		errs = append(errs, errors.New("SESSION_DURATION must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

// getEnvOrDefault returns the env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration such as "90s"; failures are collected in errs.
func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

// trustedOrigins is the host of baseURL plus the comma-separated hosts in
// extra, without duplicates.
func trustedOrigins(baseURL, extra string) []string {
	var origins []string
	add := func(host string) {
		host = strings.TrimSpace(host)
		if host == "" {
			return
		}
		for _, o := range origins {
			if o == host {
				return
			}
		}
		origins = append(origins, host)
	}
	if u, err := url.Parse(baseURL); err == nil {
		add(u.Host)
	}
	for _, host := range strings.Split(extra, ",") {
		add(host)
	}
	return origins
}

// MustLoad is like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
