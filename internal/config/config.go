package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Render   RenderConfig   `mapstructure:"render"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int    `mapstructure:"port"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	InternalSecret string `mapstructure:"internal_secret"`
}

// RenderConfig is the explicit render-backend configuration passed into each
// backend constructor. Nothing in the render path reads the environment
// directly, so disable/fallback behavior stays testable.
type RenderConfig struct {
	BrowserEnabled    bool          `mapstructure:"browser_enabled"`
	PDFPrintEnabled   bool          `mapstructure:"pdf_print_enabled"`
	BrowserBin        string        `mapstructure:"browser_bin"`
	DeviceScaleFactor float64       `mapstructure:"device_scale_factor"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	AssetTimeout      time.Duration `mapstructure:"asset_timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.public_base_url", "http://localhost:8080")
	v.SetDefault("render.browser_enabled", true)
	v.SetDefault("render.pdf_print_enabled", true)
	v.SetDefault("render.device_scale_factor", 3.0)
	v.SetDefault("render.navigation_timeout", 30*time.Second)
	v.SetDefault("render.asset_timeout", 5*time.Second)
	v.SetDefault("render.max_concurrent", 2)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "certforge")
	v.SetDefault("database.user", "certforge")
	v.SetDefault("database.password", "certforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "certificates")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "API_PORT",
		"api.public_base_url":        "PUBLIC_BASE_URL",
		"api.internal_secret":        "INTERNAL_API_SECRET",
		"render.browser_enabled":     "RENDER_BROWSER_ENABLED",
		"render.pdf_print_enabled":   "RENDER_PDF_PRINT_ENABLED",
		"render.browser_bin":         "RENDER_BROWSER_BIN",
		"render.device_scale_factor": "RENDER_DEVICE_SCALE_FACTOR",
		"render.navigation_timeout":  "RENDER_NAVIGATION_TIMEOUT",
		"render.asset_timeout":       "RENDER_ASSET_TIMEOUT",
		"render.max_concurrent":      "RENDER_MAX_CONCURRENT",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.PublicBaseURL == "" {
		return errors.New("public base url is required")
	}
	if cfg.Render.DeviceScaleFactor < 1 {
		return errors.New("render device scale factor must be at least 1")
	}
	if cfg.Render.NavigationTimeout <= 0 {
		return errors.New("render navigation timeout must be positive")
	}
	if cfg.Render.AssetTimeout <= 0 {
		return errors.New("render asset timeout must be positive")
	}
	if cfg.Render.MaxConcurrent <= 0 {
		return errors.New("render max concurrent must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}
