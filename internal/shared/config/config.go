package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"portfolio-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	CORSAllowOrigin   []string
	LogLevel          string
	LogFormat         string
	RedisURL          string
	JobLockTTL        time.Duration
	KafkaBrokers      []string
	KafkaJobTopic     string
	KafkaRequestTopic string
	KafkaGroupID      string
	MetricsEnabled    bool
	AnalysisItemDelay time.Duration
	AnalysisRate      float64
	AnalysisBurst     int
}

var defaults = map[string]any{
	"port":                "8080",
	"env":                 "dev",
	"cors_allow_origins":  "http://localhost:5173",
	"log_level":           "info",
	"log_format":          "json",
	"job_lock_ttl":        "30m",
	"kafka_job_topic":     "portfolio.analysis-jobs",
	"kafka_request_topic": "portfolio.analysis-requests",
	"kafka_group_id":      "portfolio-worker",
	"metrics_enabled":     true,
	"analysis_item_delay": "0s",
	"analysis_rate_per_s": 0.2,
	"analysis_burst":      3,
}

// Load reads configuration from environment variables with sensible defaults.
// Values from .env files are used only when the variable is not set in the environment.
func Load() Config {
	return load(newViper(".env", "cmd/.env"))
}

func newViper(envFiles ...string) *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			telemetry.Warn("config.env_file_unreadable", map[string]any{"path": path, "error": err})
		}
	}
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))
	if env == "production" && dbURL == "" {
		telemetry.Error("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:              v.GetString("port"),
		Env:               env,
		DatabaseURL:       dbURL,
		CORSAllowOrigin:   splitAndTrim(v.GetString("cors_allow_origins")),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		RedisURL:          strings.TrimSpace(v.GetString("redis_url")),
		JobLockTTL:        v.GetDuration("job_lock_ttl"),
		KafkaBrokers:      splitAndTrim(v.GetString("kafka_brokers")),
		KafkaJobTopic:     v.GetString("kafka_job_topic"),
		KafkaRequestTopic: v.GetString("kafka_request_topic"),
		KafkaGroupID:      v.GetString("kafka_group_id"),
		MetricsEnabled:    v.GetBool("metrics_enabled"),
		AnalysisItemDelay: v.GetDuration("analysis_item_delay"),
		AnalysisRate:      v.GetFloat64("analysis_rate_per_s"),
		AnalysisBurst:     v.GetInt("analysis_burst"),
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}
