package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from the file named by FOO_FILE into FOO,
// unless FOO is already set directly.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	Translation TranslationConfig
	Storage     StorageConfig
	Sweeper     SweeperConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	AdminKey    string
	CORSOrigins []string
	// Translation requests allowed per client per minute
	TranslateRatePerMin int
}

type DatabaseConfig struct {
	Path     string
	LogLevel string // silent, error, warn, info
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Mode        string // "asynq" or "inline"
	Concurrency int
	MaxRetry    int
}

type TranslationConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	CacheCapacity int
	CacheTTL      time.Duration
	MaxAttempts   int
	Debug         bool
}

type StorageConfig struct {
	Driver        string // "local" or "s3"
	LocalDir      string
	SigningSecret string
	PublicBaseURL string
	SignedURLTTL  time.Duration
	S3            S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type SweeperConfig struct {
	Interval        time.Duration
	StaleProcessing time.Duration
	RedispatchAfter time.Duration
}

// Load reads configuration from config.yaml (optional) and the environment
func Load() (*Config, error) {
	readSecret("ADMIN_KEY")
	readSecret("REDIS_PASSWORD")
	readSecret("LLM_API_KEY")
	readSecret("STORAGE_SIGNING_SECRET")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.admin_key", "ADMIN_KEY")
	_ = v.BindEnv("server.cors_origins", "CORS_ORIGINS")
	_ = v.BindEnv("server.translate_rate_per_min", "TRANSLATE_RATE_PER_MIN")
	_ = v.BindEnv("database.path", "DB_PATH")
	_ = v.BindEnv("database.log_level", "DB_LOG_LEVEL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("queue.mode", "QUEUE_MODE")
	_ = v.BindEnv("queue.concurrency", "QUEUE_CONCURRENCY")
	_ = v.BindEnv("queue.max_retry", "QUEUE_MAX_RETRY")
	_ = v.BindEnv("translation.api_key", "LLM_API_KEY")
	_ = v.BindEnv("translation.base_url", "LLM_BASE_URL")
	_ = v.BindEnv("translation.model", "LLM_MODEL")
	_ = v.BindEnv("translation.temperature", "LLM_TEMPERATURE")
	_ = v.BindEnv("translation.max_tokens", "LLM_MAX_TOKENS")
	_ = v.BindEnv("translation.timeout", "LLM_TIMEOUT")
	_ = v.BindEnv("translation.cache_capacity", "TRANSLATION_CACHE_CAPACITY")
	_ = v.BindEnv("translation.cache_ttl", "TRANSLATION_CACHE_TTL")
	_ = v.BindEnv("translation.max_attempts", "TRANSLATION_MAX_ATTEMPTS")
	_ = v.BindEnv("translation.debug", "TRANSLATION_DEBUG")
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = v.BindEnv("storage.signing_secret", "STORAGE_SIGNING_SECRET")
	_ = v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	_ = v.BindEnv("storage.signed_url_ttl", "STORAGE_SIGNED_URL_TTL")
	_ = v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	_ = v.BindEnv("storage.s3.region", "S3_REGION")
	_ = v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = v.BindEnv("sweeper.interval", "SWEEPER_INTERVAL")
	_ = v.BindEnv("sweeper.stale_processing", "SWEEPER_STALE_PROCESSING")
	_ = v.BindEnv("sweeper.redispatch_after", "SWEEPER_REDISPATCH_AFTER")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.translate_rate_per_min", 10)
	v.SetDefault("database.path", "./data/portal.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.mode", "asynq")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_retry", 3)

	// OpenAI-compatible chat completion endpoint
	v.SetDefault("translation.base_url", "https://api.openai.com/v1")
	v.SetDefault("translation.model", "gpt-4o-mini")
	v.SetDefault("translation.temperature", 0.3)
	v.SetDefault("translation.max_tokens", 4000)
	v.SetDefault("translation.timeout", "60s")
	v.SetDefault("translation.cache_capacity", 10000)
	v.SetDefault("translation.cache_ttl", "24h")
	v.SetDefault("translation.max_attempts", 3)
	v.SetDefault("translation.debug", false)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./data/documents")
	v.SetDefault("storage.signing_secret", "change-me-in-production")
	v.SetDefault("storage.public_base_url", "http://localhost:8080")
	v.SetDefault("storage.signed_url_ttl", "15m")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("sweeper.interval", "1m")
	v.SetDefault("sweeper.stale_processing", "15m")
	v.SetDefault("sweeper.redispatch_after", "5m")

	// Config file is optional
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:                v.GetString("server.port"),
			Env:                 v.GetString("server.env"),
			AdminKey:            v.GetString("server.admin_key"),
			CORSOrigins:         splitList(v.GetString("server.cors_origins")),
			TranslateRatePerMin: v.GetInt("server.translate_rate_per_min"),
		},
		Database: DatabaseConfig{
			Path:     v.GetString("database.path"),
			LogLevel: v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Queue: QueueConfig{
			Mode:        strings.ToLower(v.GetString("queue.mode")),
			Concurrency: v.GetInt("queue.concurrency"),
			MaxRetry:    v.GetInt("queue.max_retry"),
		},
		Translation: TranslationConfig{
			APIKey:        v.GetString("translation.api_key"),
			BaseURL:       strings.TrimRight(v.GetString("translation.base_url"), "/"),
			Model:         v.GetString("translation.model"),
			Temperature:   v.GetFloat64("translation.temperature"),
			MaxTokens:     v.GetInt("translation.max_tokens"),
			Timeout:       v.GetDuration("translation.timeout"),
			CacheCapacity: v.GetInt("translation.cache_capacity"),
			CacheTTL:      v.GetDuration("translation.cache_ttl"),
			MaxAttempts:   v.GetInt("translation.max_attempts"),
			Debug:         v.GetBool("translation.debug"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(v.GetString("storage.driver")),
			LocalDir:      v.GetString("storage.local_dir"),
			SigningSecret: v.GetString("storage.signing_secret"),
			PublicBaseURL: strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
			SignedURLTTL:  v.GetDuration("storage.signed_url_ttl"),
			S3: S3Config{
				Bucket:          v.GetString("storage.s3.bucket"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
			},
		},
		Sweeper: SweeperConfig{
			Interval:        v.GetDuration("sweeper.interval"),
			StaleProcessing: v.GetDuration("sweeper.stale_processing"),
			RedispatchAfter: v.GetDuration("sweeper.redispatch_after"),
		},
	}

	return cfg, nil
}

// IsProduction returns true when running with SERVER_ENV=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
