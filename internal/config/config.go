package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort string
	JWTSecret  string
	Postgres   PostgresConfig
	Redis      RedisConfig
	OpenAI     OpenAIConfig
	Worker     WorkerConfig
	Logging    LoggingConfig
}

type PostgresConfig struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig selects the durable feedback queue. An empty Addr keeps the
// in-process queue.
type RedisConfig struct {
	Addr     string
	Password string
	Stream   string
	Group    string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	FeedbackModel   string
	RealtimeModel   string
	TranscribeModel string
	DefaultVoice    string
}

type WorkerConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

func Load() (*Config, error) {
	pgPort, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))

	cfg := &Config{
		ServerPort: envOrDefault("PORT", "8080"),
		JWTSecret:  envOrDefault("JWT_SECRET", "dev-secret"),
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			Host:            envOrDefault("POSTGRES_HOST", "localhost"),
			Port:            pgPort,
			User:            envOrDefault("POSTGRES_USER", "postgres"),
			Password:        os.Getenv("POSTGRES_PASSWORD"),
			Database:        envOrDefault("POSTGRES_DB", "pitchcoach"),
			MaxConns:        parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8),
			MinConns:        parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1),
			MaxConnLifetime: parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
			MaxConnIdleTime: parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
			ConnectTimeout:  parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			Stream:   envOrDefault("REDIS_FEEDBACK_STREAM", "feedback:jobs"),
			Group:    envOrDefault("REDIS_FEEDBACK_GROUP", "feedback-workers"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:         strings.TrimRight(envOrDefault("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			FeedbackModel:   envOrDefault("OPENAI_FEEDBACK_MODEL", "gpt-4o-mini"),
			RealtimeModel:   envOrDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17"),
			TranscribeModel: envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			DefaultVoice:    envOrDefault("OPENAI_DEFAULT_VOICE", "verse"),
		},
		Worker: WorkerConfig{
			Concurrency: int(parseInt32(envOrDefault("WORKER_CONCURRENCY", "2"), 2)),
			JobTimeout:  parseDuration(envOrDefault("WORKER_JOB_TIMEOUT", "90s"), 90*time.Second),
		},
		Logging: LoggingConfig{
			Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
			Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
			ServiceName:  envOrDefault("SERVICE_NAME", "pitchcoach-server"),
		},
	}

	return cfg, nil
}

func (c PostgresConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
