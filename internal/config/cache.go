package config

import (
	"os"
	"strconv"
	"time"
)

// SummaryCacheConfig holds settings for the redis-backed summary cache.
type SummaryCacheConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// LoadSummaryCacheConfig loads cache configuration from environment variables.
func LoadSummaryCacheConfig() *SummaryCacheConfig {
	return &SummaryCacheConfig{
		KeyPrefix: getEnv("SUMMARY_CACHE_PREFIX", "summary"),
		TTL:       getEnvAsDuration("SUMMARY_CACHE_TTL_SECONDS", 300*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if seconds := getEnvAsInt(key, 0); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
