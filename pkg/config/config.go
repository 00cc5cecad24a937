package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// Config holds all configuration for firegrid-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Database configuration (PostgreSQL). Dataset metadata lives here.
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration. When Host is empty the transform cache stays in process memory.
	Redis RedisConfig `yaml:"redis"`

	Upload  UploadConfig  `yaml:"upload"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// UploadEncryptionKey enables at-rest encryption of raw uploads when set.
	// Base64 32-byte key or passphrase. Generate with: openssl rand -base64 32
	UploadEncryptionKey string `yaml:"-" env:"UPLOAD_ENCRYPTION_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"firegrid"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"firegrid"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection configuration for the transform cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Enabled reports whether a Redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UploadConfig controls what the data formatter accepts and where raw files are kept.
type UploadConfig struct {
	Dir string `yaml:"dir" env:"UPLOAD_DIR" env-default:"data/uploads"`
	// AllowedExtensionsStr is a comma-separated list of accepted file extensions.
	AllowedExtensionsStr string `yaml:"allowed_extensions" env:"UPLOAD_ALLOWED_EXTENSIONS" env-default:"csv,xlsx,xls,json,xml"`
	MaxUploadMB          int64  `yaml:"max_upload_mb" env:"UPLOAD_MAX_MB" env-default:"50"`
	PreviewRows          int    `yaml:"preview_rows" env:"UPLOAD_PREVIEW_ROWS" env-default:"50"`

	// AllowedFormats is parsed from AllowedExtensionsStr (not from config file).
	AllowedFormats []models.FileFormat `yaml:"-"`
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *UploadConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// SessionConfig holds the session cookie settings.
type SessionConfig struct {
	CookieName    string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"firegrid_session"`
	MaxAgeSeconds int    `yaml:"max_age_seconds" env:"SESSION_MAX_AGE_SECONDS" env-default:"86400"`
	Secure        bool   `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
	// Secret signs the session cookie.
	Secret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

// CacheConfig holds transform cache settings.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" env:"CACHE_TTL_MINUTES" env-default:"120"`
}

// TTL returns the cache entry lifetime.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, REDIS_PASSWORD, SESSION_SECRET, UPLOAD_ENCRYPTION_KEY) must come
// from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = ResolveHostForDocker(cfg.Redis.Host)

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	formats, err := parseAllowedExtensions(c.Upload.AllowedExtensionsStr)
	if err != nil {
		return err
	}
	c.Upload.AllowedFormats = formats
	return nil
}

func (c *Config) validate() error {
	if c.Upload.MaxUploadMB <= 0 {
		return fmt.Errorf("upload.max_upload_mb must be positive")
	}
	if c.Upload.PreviewRows < 0 {
		return fmt.Errorf("upload.preview_rows must not be negative")
	}
	if c.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("cache.ttl_minutes must be positive")
	}
	if c.Session.Secret == "" && c.Env != "local" && c.Env != "test" {
		return fmt.Errorf("SESSION_SECRET is required outside local development")
	}
	return nil
}

// parseAllowedExtensions parses "csv, .XLSX,json" into known formats.
func parseAllowedExtensions(value string) ([]models.FileFormat, error) {
	var formats []models.FileFormat
	for _, part := range strings.Split(value, ",") {
		ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if ext == "" {
			continue
		}
		format, ok := models.FormatFromFilename("file." + ext)
		if !ok {
			return nil, fmt.Errorf("unsupported upload extension %q", ext)
		}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("upload.allowed_extensions must list at least one extension")
	}
	return formats, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal when running in a
// container, so services on the host machine stay reachable.
func ResolveHostForDocker(host string) string {
	if IsRunningInDocker() && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
