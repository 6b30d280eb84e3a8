package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inspectsync/database"
	"inspectsync/domain/uploads"
	"inspectsync/infrastructure/session"
	"inspectsync/logging"
)

// Defaults for the sync client.
const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultReportInterval = 5 * time.Second
	DefaultFilesInterval  = 3 * time.Second
)

// AppConfig holds client-wide configuration.
type AppConfig struct {
	APIURL      string
	HTTPTimeout time.Duration
	AccessToken string // Fixed token; overrides any stored session when set
	Polling     PollingConfig
	Upload      UploadConfig
	OAuth       session.RefreshConfig
	Database    *database.Config
	Logging     *logging.Config
}

// PollingConfig controls the background status watchers.
type PollingConfig struct {
	ReportInterval time.Duration `yaml:"report_interval"`
	FilesInterval  time.Duration `yaml:"files_interval"`
}

// UploadConfig controls pre-flight upload checks.
type UploadConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
}

// overlay is the optional YAML file named by INSPECT_CONFIG_FILE.
type overlay struct {
	API struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Polling PollingConfig `yaml:"polling"`
	Upload  UploadConfig  `yaml:"upload"`
}

// DefaultAppConfig returns the configuration used when nothing is set.
func DefaultAppConfig() *AppConfig {
	db := database.DefaultConfig(defaultSessionPath())
	return &AppConfig{
		APIURL:      DefaultAPIURL,
		HTTPTimeout: DefaultHTTPTimeout,
		Polling: PollingConfig{
			ReportInterval: DefaultReportInterval,
			FilesInterval:  DefaultFilesInterval,
		},
		Upload:   UploadConfig{MaxFileSize: uploads.DefaultMaxFileSize},
		Database: &db,
		Logging:  logging.DefaultConfig(),
	}
}

// LoadAppConfigFromEnv loads configuration from defaults, then the optional
// YAML overlay, then environment variables. Later sources win.
func LoadAppConfigFromEnv() (*AppConfig, error) {
	cfg := DefaultAppConfig()

	if path := os.Getenv("INSPECT_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.APIURL = strings.TrimRight(getEnvWithDefault("INSPECT_API_URL", cfg.APIURL), "/")
	cfg.HTTPTimeout = getEnvDurationWithDefault("INSPECT_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.AccessToken = os.Getenv("INSPECT_ACCESS_TOKEN")
	cfg.Polling.ReportInterval = getEnvDurationWithDefault("INSPECT_REPORT_POLL_INTERVAL", cfg.Polling.ReportInterval)
	cfg.Polling.FilesInterval = getEnvDurationWithDefault("INSPECT_FILES_POLL_INTERVAL", cfg.Polling.FilesInterval)
	cfg.Upload.MaxFileSize = getEnvInt64WithDefault("INSPECT_UPLOAD_MAX_BYTES", cfg.Upload.MaxFileSize)
	cfg.OAuth = LoadOAuthConfigFromEnv()
	cfg.Database = LoadDatabaseConfigFromEnv(cfg.Database)
	cfg.Logging = LoadLoggingConfigFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("INSPECT_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.Polling.ReportInterval <= 0 || c.Polling.FilesInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("INSPECT_UPLOAD_MAX_BYTES must be positive")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("INSPECT_HTTP_TIMEOUT must not be negative")
	}
	return nil
}

// UploadLimits converts the upload section into pre-flight limits.
func (c *AppConfig) UploadLimits() uploads.Limits {
	return uploads.Limits{MaxFileSize: c.Upload.MaxFileSize}
}

func (c *AppConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if o.API.URL != "" {
		c.APIURL = o.API.URL
	}
	if o.API.Timeout > 0 {
		c.HTTPTimeout = o.API.Timeout
	}
	if o.Polling.ReportInterval > 0 {
		c.Polling.ReportInterval = o.Polling.ReportInterval
	}
	if o.Polling.FilesInterval > 0 {
		c.Polling.FilesInterval = o.Polling.FilesInterval
	}
	if o.Upload.MaxFileSize > 0 {
		c.Upload.MaxFileSize = o.Upload.MaxFileSize
	}
	return nil
}

// LoadOAuthConfigFromEnv loads the optional refresh-token grant settings.
func LoadOAuthConfigFromEnv() session.RefreshConfig {
	scopes := strings.Fields(strings.ReplaceAll(os.Getenv("INSPECT_OAUTH_SCOPES"), ",", " "))
	return session.RefreshConfig{
		TokenURL:     os.Getenv("INSPECT_OAUTH_TOKEN_URL"),
		ClientID:     os.Getenv("INSPECT_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("INSPECT_OAUTH_CLIENT_SECRET"),
		Scopes:       scopes,
	}
}

// LoadDatabaseConfigFromEnv loads session database configuration over base.
func LoadDatabaseConfigFromEnv(base *database.Config) *database.Config {
	return &database.Config{
		Path:            getEnvWithDefault("INSPECT_SESSION_DB", base.Path),
		MaxOpenConns:    getEnvIntWithDefault("DB_MAX_OPEN_CONNS", base.MaxOpenConns),
		ConnMaxLifetime: getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", base.ConnMaxLifetime),
		BusyTimeoutMs:   getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", base.BusyTimeoutMs),
		EnableWAL:       getEnvBoolWithDefault("DB_ENABLE_WAL", base.EnableWAL),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "console"),
		Output: getEnvWithDefault("LOG_OUTPUT", "stderr"),
	}
}

func defaultSessionPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".inspectsync", "session.db")
	}
	return "./inspectsync-session.db"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
