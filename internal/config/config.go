package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	S3       S3Config       `mapstructure:"s3"`
	Photo    PhotoConfig    `mapstructure:"photo"`
	Identity IdentityConfig `mapstructure:"identity"`
	AI       AIConfig       `mapstructure:"ai"`
	Resume   ResumeConfig   `mapstructure:"resume"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port                 int      `mapstructure:"port"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"`
	PreviewOriginPattern string   `mapstructure:"preview_origin_pattern"`
	FrontendBaseURL      string   `mapstructure:"frontend_base_url"`
	BackendBaseURL       string   `mapstructure:"backend_base_url"`
	InternalSecret       string   `mapstructure:"internal_secret"`
}

// LogConfig 控制 slog 输出格式与级别。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
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

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig 选择 Blob 存储驱动。
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// S3Config contains options for AWS S3 or Cloudflare R2.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// PhotoConfig 限制简历头像的大小与尺寸。
type PhotoConfig struct {
	MaxBytes     int64  `mapstructure:"max_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
	ClamdAddr    string `mapstructure:"clamd_addr"`
}

// IdentityConfig 描述外部身份服务（Clerk）的凭据。
type IdentityConfig struct {
	WebhookSecret string        `mapstructure:"webhook_secret"`
	JWTPublicKey  string        `mapstructure:"jwt_public_key"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// AIConfig 描述文本生成服务。
type AIConfig struct {
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	RateLimitPerHour int    `mapstructure:"rate_limit_per_hour"`
}

// ResumeConfig 简历相关的业务开关。
type ResumeConfig struct {
	MaxPerUser int `mapstructure:"max_per_user"`
}

// WorkerConfig contains asynq worker settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MetricsPort int `mapstructure:"metrics_port"`
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
	cfg.API.AllowedOrigins = splitList(v.GetString("api.allowed_origins"))

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
	v.SetDefault("api.allowed_origins", "http://localhost:3000")
	v.SetDefault("api.frontend_base_url", "http://localhost:3000")
	v.SetDefault("api.backend_base_url", "http://localhost:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "careerdesk")
	v.SetDefault("database.user", "careerdesk")
	v.SetDefault("database.password", "careerdesk")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.driver", "minio")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("s3.region", "auto")
	v.SetDefault("photo.max_bytes", 5*1024*1024)
	v.SetDefault("photo.max_dimension", 1024)
	v.SetDefault("identity.cache_ttl", 10*time.Minute)
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.rate_limit_per_hour", 30)
	v.SetDefault("resume.max_per_user", 0)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.metrics_port", 9091)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "API_PORT",
		"api.allowed_origins":        "CORS_ALLOWED_ORIGINS",
		"api.preview_origin_pattern": "CORS_PREVIEW_ORIGIN_PATTERN",
		"api.frontend_base_url":      "FRONTEND_BASE_URL",
		"api.backend_base_url":       "BACKEND_BASE_URL",
		"api.internal_secret":        "INTERNAL_API_SECRET",
		"log.level":                  "LOG_LEVEL",
		"log.format":                 "LOG_FORMAT",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"storage.driver":             "STORAGE_DRIVER",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.public_endpoint":      "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
		"minio.region":               "MINIO_REGION",
		"minio.bucket_lookup":        "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":   "MINIO_AUTO_CREATE_BUCKET",
		"s3.endpoint":                "S3_ENDPOINT",
		"s3.region":                  "S3_REGION",
		"s3.bucket":                  "S3_BUCKET",
		"s3.access_key_id":           "S3_ACCESS_KEY_ID",
		"s3.secret_access_key":       "S3_SECRET_ACCESS_KEY",
		"s3.public_base_url":         "S3_PUBLIC_BASE_URL",
		"photo.max_bytes":            "PHOTO_MAX_BYTES",
		"photo.max_dimension":        "PHOTO_MAX_DIMENSION",
		"photo.clamd_addr":           "CLAMD_ADDR",
		"identity.webhook_secret":    "CLERK_WEBHOOK_SECRET",
		"identity.jwt_public_key":    "CLERK_JWT_PUBLIC_KEY",
		"identity.cache_ttl":         "IDENTITY_CACHE_TTL",
		"ai.api_key":                 "GEMINI_API_KEY",
		"ai.model":                   "GEMINI_MODEL",
		"ai.rate_limit_per_hour":     "AI_RATE_LIMIT_PER_HOUR",
		"resume.max_per_user":        "RESUME_MAX_PER_USER",
		"worker.concurrency":         "WORKER_CONCURRENCY",
		"worker.metrics_port":        "WORKER_METRICS_PORT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
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
	switch cfg.Storage.Driver {
	case "minio":
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
	case "s3":
		if cfg.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
		if cfg.S3.AccessKeyID == "" || cfg.S3.SecretAccessKey == "" {
			return errors.New("s3 credentials are required")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Photo.MaxBytes <= 0 {
		return errors.New("photo max bytes must be positive")
	}
	if cfg.Resume.MaxPerUser < 0 {
		return errors.New("resume max per user must not be negative")
	}
	return nil
}
