package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/soundforge/pulse/pkg/ranking"
	"github.com/soundforge/pulse/pkg/telemetry"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Engine        EngineConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes and scraping)
	HealthPort string
}

// EngineConfig holds the telemetry and ranking engine settings
type EngineConfig struct {
	RollupInterval time.Duration
	AlertInterval  time.Duration
	SweepInterval  time.Duration
	WindowHorizon  int

	TrendingWindow time.Duration

	RetentionMaxAge   time.Duration
	RetentionMinPlays int64

	ActorHistoryLimit int
	ActorCacheSize    int
	ActorCacheTTL     time.Duration

	Weights    ranking.Weights
	Thresholds telemetry.Thresholds

	// ThresholdsFile optionally points at a YAML file overriding the
	// alert thresholds; the file is watched and hot-reloaded
	ThresholdsFile string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Engine:        loadEngineConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PULSE_HOST", "0.0.0.0"),
		Port:            getEnv("PULSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PULSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PULSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PULSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PULSE_HEALTH_PORT", "9090"),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		RollupInterval: getEnvDuration("PULSE_ROLLUP_INTERVAL", time.Hour),
		AlertInterval:  getEnvDuration("PULSE_ALERT_INTERVAL", time.Minute),
		SweepInterval:  getEnvDuration("PULSE_SWEEP_INTERVAL", time.Hour),
		WindowHorizon:  getEnvInt("PULSE_WINDOW_HORIZON", telemetry.DefaultWindowHorizon),

		TrendingWindow: getEnvDuration("PULSE_TRENDING_WINDOW", 24*time.Hour),

		RetentionMaxAge:   getEnvDuration("PULSE_RETENTION_MAX_AGE", 30*24*time.Hour),
		RetentionMinPlays: int64(getEnvInt("PULSE_RETENTION_MIN_PLAYS", 5)),

		ActorHistoryLimit: getEnvInt("PULSE_ACTOR_HISTORY_LIMIT", telemetry.DefaultActorHistoryLimit),
		ActorCacheSize:    getEnvInt("PULSE_ACTOR_CACHE_SIZE", telemetry.DefaultActorCacheSize),
		ActorCacheTTL:     getEnvDuration("PULSE_ACTOR_CACHE_TTL", 24*time.Hour),

		Weights: ranking.Weights{
			Play:     getEnvFloat("PULSE_WEIGHT_PLAY", 1),
			Like:     getEnvFloat("PULSE_WEIGHT_LIKE", 3),
			Share:    getEnvFloat("PULSE_WEIGHT_SHARE", 5),
			Download: getEnvFloat("PULSE_WEIGHT_DOWNLOAD", 2),
		},
		Thresholds: telemetry.Thresholds{
			ErrorRate:    getEnvFloat("PULSE_ALERT_ERROR_RATE", 0.10),
			AvgLatencyMs: getEnvFloat("PULSE_ALERT_AVG_LATENCY_MS", 2000),
			HeapBytes:    uint64(getEnvInt64("PULSE_ALERT_HEAP_BYTES", 500*1024*1024)),
		},
		ThresholdsFile: getEnv("PULSE_THRESHOLDS_FILE", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("PULSE_LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("PULSE_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid. Invalid configuration
// fails startup; nothing here is recoverable at runtime.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	e := c.Engine
	if e.RollupInterval <= 0 || e.AlertInterval <= 0 || e.SweepInterval <= 0 {
		return fmt.Errorf("engine intervals must be positive")
	}
	if e.WindowHorizon <= 0 {
		return fmt.Errorf("window horizon must be positive")
	}
	if e.TrendingWindow <= 0 {
		return fmt.Errorf("trending window must be positive")
	}
	if e.RetentionMaxAge <= 0 {
		return fmt.Errorf("retention max age must be positive")
	}
	if e.RetentionMinPlays < 0 {
		return fmt.Errorf("retention min plays must not be negative")
	}
	if e.ActorHistoryLimit <= 0 || e.ActorCacheSize <= 0 {
		return fmt.Errorf("actor history bounds must be positive")
	}
	if e.Weights.Play < 0 || e.Weights.Like < 0 || e.Weights.Share < 0 || e.Weights.Download < 0 {
		return fmt.Errorf("score weights must not be negative")
	}
	if e.Thresholds.ErrorRate < 0 || e.Thresholds.ErrorRate > 1 {
		return fmt.Errorf("error rate threshold must be between 0 and 1")
	}
	if e.Thresholds.AvgLatencyMs < 0 {
		return fmt.Errorf("latency threshold must not be negative")
	}
	if e.ThresholdsFile != "" {
		if _, err := os.Stat(e.ThresholdsFile); err != nil {
			return fmt.Errorf("thresholds file %s is not readable: %w", e.ThresholdsFile, err)
		}
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
