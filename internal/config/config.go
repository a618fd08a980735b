// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"geointel/internal/domain/intel"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	NATS        NATSConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	Engine      EngineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
	FeedTopic      string
	FetchTimeout   time.Duration
}

// RedisConfig holds the render-state mirror configuration
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// DatabaseConfig holds the curated zone database configuration
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// EngineConfig holds fusion engine configuration. Poll cadences are fixed per
// feed.
type EngineConfig struct {
	EnabledSources      []string
	SchedulerResolution time.Duration
	PublishTimeout      time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "intel"),
			FeedTopic:      getEnv("NATS_FEED_TOPIC", "feeds"),
			FetchTimeout:   getEnvAsDuration("NATS_FETCH_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "intel"),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "geointel"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 1),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		Engine: EngineConfig{
			EnabledSources:      getEnvAsSlice("ENGINE_ENABLED_SOURCES", defaultEnabledSources()),
			SchedulerResolution: getEnvAsDuration("ENGINE_SCHEDULER_RESOLUTION", 250*time.Millisecond),
			PublishTimeout:      getEnvAsDuration("ENGINE_PUBLISH_TIMEOUT", 5*time.Second),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", config.Server.Port)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Log.Level)
	}

	switch strings.ToLower(config.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Log.Format)
	}

	for _, id := range config.Engine.EnabledSources {
		if !intel.Kind(id).Valid() {
			return fmt.Errorf("unknown source in ENGINE_ENABLED_SOURCES: %q", id)
		}
	}

	if config.Engine.SchedulerResolution <= 0 || config.Engine.SchedulerResolution > time.Second {
		return fmt.Errorf("scheduler resolution must be in (0, 1s], got %s", config.Engine.SchedulerResolution)
	}

	return nil
}

func defaultEnabledSources() []string {
	ids := make([]string, 0, len(intel.Kinds))
	for _, k := range intel.Kinds {
		ids = append(ids, string(k))
	}
	return ids
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
