package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// config is the full environment-driven configuration of the backend.
type config struct {
	Port     string
	RedisURL string

	// APIKeys is the comma-separated upstream key list.
	APIKeys string

	RateLimitCount  int
	RateLimitWindow time.Duration

	MaxPages        int
	ChannelCacheTTL time.Duration

	AllowedOrigins []string

	LogLevel  string
	LogPretty bool
}

func loadConfig() config {
	return config{
		Port:            getEnv("PORT", "8080"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		APIKeys:         getEnv("YOUTUBE_API_KEYS", ""),
		RateLimitCount:  getEnvInt("SEARCH_RATE_LIMIT_COUNT", 50),
		RateLimitWindow: time.Duration(getEnvInt("SEARCH_RATE_LIMIT_WINDOW_SECONDS", 21600)) * time.Second,
		MaxPages:        getEnvInt("SEARCH_MAX_PAGES", 5),
		ChannelCacheTTL: time.Duration(getEnvInt("CHANNEL_CACHE_TTL_SECONDS", 3600)) * time.Second,
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
