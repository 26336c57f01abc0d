package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Workflow deployment modes. A deployment runs exactly one of them.
const (
	WorkflowThreeParty = "three_party"
	WorkflowTwoParty   = "two_party"
)

// Photo storage drivers.
const (
	PhotoDriverLocal = "local"
	PhotoDriverGCS   = "gcs"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Workflow  WorkflowConfig
	Dashboard DashboardConfig
	Photos    PhotoConfig
	Metrics   MetricsConfig
	Docs      DocsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkflowConfig selects the report approval table used by this deployment.
type WorkflowConfig struct {
	Mode        string
	LockTimeout time.Duration
}

// DashboardConfig governs dashboard counter caching.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// PhotoConfig configures where complaint photos live and how they are served.
type PhotoConfig struct {
	Driver          string
	StorageDir      string
	GCSBucket       string
	GCSCredentials  string
	MaxFileSize     int64
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	mode := strings.ToLower(strings.TrimSpace(v.GetString("WORKFLOW_MODE")))
	switch mode {
	case WorkflowThreeParty, WorkflowTwoParty:
	default:
		return nil, fmt.Errorf("unsupported WORKFLOW_MODE %q (want %s or %s)", mode, WorkflowThreeParty, WorkflowTwoParty)
	}
	cfg.Workflow = WorkflowConfig{
		Mode:        mode,
		LockTimeout: parseDuration(v.GetString("WORKFLOW_LOCK_TIMEOUT"), 3*time.Second),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 2*time.Minute),
	}

	maxPhoto := v.GetInt64("PHOTO_MAX_SIZE")
	if maxPhoto <= 0 {
		maxPhoto = 5 * 1024 * 1024
	}
	cfg.Photos = PhotoConfig{
		Driver:          strings.ToLower(v.GetString("PHOTO_STORAGE_DRIVER")),
		StorageDir:      v.GetString("PHOTO_STORAGE_DIR"),
		GCSBucket:       v.GetString("PHOTO_GCS_BUCKET"),
		GCSCredentials:  v.GetString("PHOTO_GCS_CREDENTIALS_FILE"),
		MaxFileSize:     maxPhoto,
		SignedURLSecret: v.GetString("PHOTO_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("PHOTO_SIGNED_URL_TTL"), time.Hour),
	}
	if cfg.Photos.Driver == PhotoDriverGCS && cfg.Photos.GCSBucket == "" {
		return nil, errors.New("PHOTO_GCS_BUCKET is required when PHOTO_STORAGE_DRIVER=gcs")
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}
	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "laporpak")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "laporpak")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKFLOW_MODE", WorkflowThreeParty)
	v.SetDefault("WORKFLOW_LOCK_TIMEOUT", "3s")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "2m")

	v.SetDefault("PHOTO_STORAGE_DRIVER", PhotoDriverLocal)
	v.SetDefault("PHOTO_STORAGE_DIR", "./storage/reports")
	v.SetDefault("PHOTO_GCS_BUCKET", "")
	v.SetDefault("PHOTO_GCS_CREDENTIALS_FILE", "")
	v.SetDefault("PHOTO_MAX_SIZE", 5*1024*1024)
	v.SetDefault("PHOTO_SIGNED_URL_SECRET", "dev_photo_secret")
	v.SetDefault("PHOTO_SIGNED_URL_TTL", "1h")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_DOCS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
