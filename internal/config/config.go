// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all client configuration.
type Config struct {
	APIBaseURL string
	DBPath     string

	// Session manager tuning.
	ExpiryPollInterval time.Duration
	RefreshThreshold   time.Duration

	// Chat session tuning.
	ChatDuration  time.Duration
	CountdownTick time.Duration
}

// DevServer holds configuration for the local stub backend.
type DevServer struct {
	Port           string
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AllowedOrigins []string
}

// Load reads client configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8000/api/v1"),
		DBPath:             getEnv("DB_PATH", "./data/assessor.db"),
		ExpiryPollInterval: getEnvDuration("TOKEN_EXPIRY_POLL_INTERVAL", time.Minute),
		RefreshThreshold:   getEnvDuration("TOKEN_REFRESH_THRESHOLD", 5*time.Minute),
		ChatDuration:       getEnvDuration("CHAT_DURATION", 15*time.Minute),
		CountdownTick:      getEnvDuration("CHAT_COUNTDOWN_TICK", time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDevServer reads stub backend configuration from environment variables.
func LoadDevServer() (*DevServer, error) {
	cfg := &DevServer{
		Port:           getEnv("PORT", "8000"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL:      getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTTL:     getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("invalid configuration: PORT cannot be empty")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET cannot be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("invalid configuration: token TTLs must be > 0")
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ExpiryPollInterval <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY_POLL_INTERVAL must be > 0")
	}
	if c.RefreshThreshold <= 0 {
		return fmt.Errorf("TOKEN_REFRESH_THRESHOLD must be > 0")
	}
	if c.ChatDuration <= 0 {
		return fmt.Errorf("CHAT_DURATION must be > 0")
	}
	if c.CountdownTick <= 0 {
		return fmt.Errorf("CHAT_COUNTDOWN_TICK must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Plain integers are taken as seconds.
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
