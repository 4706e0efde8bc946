package config

import (
	"os"
	"strconv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Strategy      string
	Seed          int64
	RoutingCutoff int
	MetricsAddr   string
	WatchAddr     string
	WatchSecret   string
	RedisURL      string
	DatabaseURL   string
	ConfigFile    string
}

// Load reads configuration from environment variables with sensible defaults.
// Empty addresses and URLs leave the matching side channel disabled, so a
// bare process only speaks the match protocol.
func Load() *Config {
	return &Config{
		Strategy:      envOrDefault("BOT_STRATEGY", "heuristic"),
		Seed:          int64(envIntOrDefault("BOT_SEED", 0)),
		RoutingCutoff: envIntOrDefault("ROUTING_CUTOFF", 7),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		WatchAddr:     os.Getenv("WATCH_ADDR"),
		WatchSecret:   envOrDefault("WATCH_SECRET", "dev-secret-change-me"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ConfigFile:    os.Getenv("CONFIG_FILE"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
