package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	AdminSecret string `yaml:"admin_secret"`

	// Database
	DatabasePath string `yaml:"database_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console

	// Identity tokens
	TokenSecret   string `yaml:"token_secret"`
	TokenIssuer   string `yaml:"token_issuer"`
	TokenAudience string `yaml:"token_audience"`

	// Push relay
	PushEndpoint string        `yaml:"push_endpoint"` // empty disables push
	PushTimeout  time.Duration `yaml:"push_timeout"`

	// Content filter
	FilterWordsPath string `yaml:"filter_words_path"`

	// Rate Limiting
	FollowRateLimit   int           `yaml:"follow_rate_limit"`   // per window
	ReactionRateLimit int           `yaml:"reaction_rate_limit"` // per window
	CommentRateLimit  int           `yaml:"comment_rate_limit"`  // per window
	RankingRateLimit  int           `yaml:"ranking_rate_limit"`  // per window
	ReportRateLimit   int           `yaml:"report_rate_limit"`   // per window
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

func defaults() *Config {
	return &Config{
		Port:              8080,
		Host:              "0.0.0.0",
		DatabasePath:      "ranked.db",
		LogLevel:          "info",
		LogFormat:         "json",
		PushEndpoint:      "https://exp.host/--/api/v2/push/send",
		PushTimeout:       5 * time.Second,
		FollowRateLimit:   120,
		ReactionRateLimit: 300,
		CommentRateLimit:  60,
		RankingRateLimit:  20,
		ReportRateLimit:   10,
		RateLimitWindow:   time.Hour,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// RANKED_CONFIG if set, then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("RANKED_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.AdminSecret = getEnv("ADMIN_SECRET", cfg.AdminSecret)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.TokenSecret = getEnv("TOKEN_SECRET", cfg.TokenSecret)
	cfg.TokenIssuer = getEnv("TOKEN_ISSUER", cfg.TokenIssuer)
	cfg.TokenAudience = getEnv("TOKEN_AUDIENCE", cfg.TokenAudience)
	cfg.PushEndpoint = getEnv("PUSH_ENDPOINT", cfg.PushEndpoint)
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", cfg.PushTimeout)
	cfg.FilterWordsPath = getEnv("FILTER_WORDS_PATH", cfg.FilterWordsPath)
	cfg.FollowRateLimit = getEnvInt("FOLLOW_RATE_LIMIT", cfg.FollowRateLimit)
	cfg.ReactionRateLimit = getEnvInt("REACTION_RATE_LIMIT", cfg.ReactionRateLimit)
	cfg.CommentRateLimit = getEnvInt("COMMENT_RATE_LIMIT", cfg.CommentRateLimit)
	cfg.RankingRateLimit = getEnvInt("RANKING_RATE_LIMIT", cfg.RankingRateLimit)
	cfg.ReportRateLimit = getEnvInt("REPORT_RATE_LIMIT", cfg.ReportRateLimit)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
