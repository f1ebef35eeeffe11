package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Port     string
		Database string
		Username string
		Password string
		SSLMode  string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		Database int
	}
	Minio struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	JWT struct {
		SecretKey string
		Expire    int // seconds
	}
	Upload struct {
		MaxSize      int64    // bytes
		AllowedMimes []string // mime type allow-list
	}
	CacheTier struct {
		Backend         string        // "redis" or "memory"
		MaxMemory       int64         // bytes
		EvictionPolicy  string        // only "lru" is recognized
		DefaultTTL      time.Duration // applied to volatile entries
		PersistenceMode string        // "none" or "appendonly"
	}
	Timeouts struct {
		Cache   time.Duration
		Store   time.Duration
		ColdIO  time.Duration
		LastUse time.Duration // deadline for async last-used updates
	}
	Environment struct {
		Mode string
	}
	Server struct {
		Port string
	}
}

const (
	// DefaultMaxUploadSize caps a single payload at 20MB.
	DefaultMaxUploadSize int64 = 20 * 1024 * 1024
	// DefaultCacheMaxMemory bounds the hot tier at 256MB.
	DefaultCacheMaxMemory int64 = 256 * 1024 * 1024
)

var defaultAllowedMimes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/svg+xml",
	"image/x-icon",
	"text/plain",
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	config.Postgres.Port = getEnv("POSTGRES_PORT", "5432")
	config.Postgres.Database = getEnv("POSTGRES_DB", "picvault")
	config.Postgres.Username = getEnv("POSTGRES_USER", "picvault")
	config.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	config.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")

	// Redis
	config.Redis.Host = getEnv("REDIS_HOST", "localhost")
	config.Redis.Port = getEnv("REDIS_PORT", "6379")
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	// MinIO
	config.Minio.Endpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	config.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	config.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	config.Minio.Bucket = getEnv("MINIO_BUCKET", "picvault-images")
	config.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", false)

	// RabbitMQ
	config.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	config.RabbitMQ.Port = getEnv("RABBITMQ_PORT", "5672")
	config.RabbitMQ.Username = getEnv("RABBITMQ_USER", "guest")
	config.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Expire = getEnvInt("JWT_EXPIRE", 3600*24)

	// Upload limits
	config.Upload.MaxSize = getEnvInt64("UPLOAD_MAX_SIZE", DefaultMaxUploadSize)
	if mimes := os.Getenv("UPLOAD_ALLOWED_MIMES"); mimes != "" {
		for _, m := range strings.Split(mimes, ",") {
			if m = strings.TrimSpace(m); m != "" {
				config.Upload.AllowedMimes = append(config.Upload.AllowedMimes, m)
			}
		}
	} else {
		config.Upload.AllowedMimes = append([]string(nil), defaultAllowedMimes...)
	}

	// Cache tier
	config.CacheTier.Backend = getEnv("CACHE_BACKEND", "redis")
	config.CacheTier.MaxMemory = getEnvInt64("CACHE_MAX_MEMORY", DefaultCacheMaxMemory)
	config.CacheTier.EvictionPolicy = getEnv("CACHE_EVICTION_POLICY", "lru")
	config.CacheTier.DefaultTTL = getEnvDuration("CACHE_DEFAULT_TTL", 24*time.Hour)
	config.CacheTier.PersistenceMode = getEnv("CACHE_PERSISTENCE_MODE", "none")

	// Per-call timeouts; no external call may block indefinitely.
	config.Timeouts.Cache = getEnvDuration("CACHE_TIMEOUT", 2*time.Second)
	config.Timeouts.Store = getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	config.Timeouts.ColdIO = getEnvDuration("COLD_IO_TIMEOUT", 30*time.Second)
	config.Timeouts.LastUse = getEnvDuration("LAST_USE_TIMEOUT", 3*time.Second)

	config.Environment.Mode = getEnv("DEPLOY_ENV", "development")
	config.Server.Port = getEnv("SERVER_PORT", "8080")

	return &config
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
