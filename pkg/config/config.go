package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	AITasks  AITasksConfig
	Poller   PollerConfig
	Client   ClientConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify identity-provider tokens.
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

// AITasksConfig configures the asynchronous analysis pipeline.
type AITasksConfig struct {
	Enabled           bool
	ServiceURL        string
	ServiceTimeout    time.Duration
	TaskTTL           time.Duration
	WorkerConcurrency int
	QueueBuffer       int
}

// PollerConfig bounds client-side task polling.
type PollerConfig struct {
	Timeout        time.Duration
	RequestTimeout time.Duration
}

// ClientConfig is read by syllabusctl to reach a running API.
type ClientConfig struct {
	BaseURL string
	Token   string
	Verbose bool
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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

	workers := v.GetInt("AI_WORKER_CONCURRENCY")
	if workers <= 0 {
		workers = 1
	}
	cfg.AITasks = AITasksConfig{
		Enabled:           v.GetBool("ENABLE_AI_TASKS"),
		ServiceURL:        strings.TrimRight(v.GetString("AI_SERVICE_URL"), "/"),
		ServiceTimeout:    parseDuration(v.GetString("AI_SERVICE_TIMEOUT"), 25*time.Second),
		TaskTTL:           parseDuration(v.GetString("AI_TASK_TTL"), 24*time.Hour),
		WorkerConcurrency: workers,
		QueueBuffer:       v.GetInt("AI_QUEUE_BUFFER"),
	}

	cfg.Poller = PollerConfig{
		Timeout:        parseDuration(v.GetString("POLL_TIMEOUT"), 30*time.Second),
		RequestTimeout: parseDuration(v.GetString("POLL_REQUEST_TIMEOUT"), 10*time.Second),
	}

	cfg.Client = ClientConfig{
		BaseURL: strings.TrimRight(v.GetString("SYLLABUS_API_URL"), "/"),
		Token:   v.GetString("SYLLABUS_API_TOKEN"),
		Verbose: v.GetBool("SYLLABUS_VERBOSE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smd_syllabus")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_AI_TASKS", true)
	v.SetDefault("AI_SERVICE_URL", "http://localhost:8000")
	v.SetDefault("AI_SERVICE_TIMEOUT", "25s")
	v.SetDefault("AI_TASK_TTL", "24h")
	v.SetDefault("AI_WORKER_CONCURRENCY", 2)
	v.SetDefault("AI_QUEUE_BUFFER", 32)

	v.SetDefault("POLL_TIMEOUT", "30s")
	v.SetDefault("POLL_REQUEST_TIMEOUT", "10s")

	v.SetDefault("SYLLABUS_API_URL", "http://localhost:8080/api/v1")
	v.SetDefault("SYLLABUS_API_TOKEN", "")
	v.SetDefault("SYLLABUS_VERBOSE", false)
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
