package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	DatabasePath    string
	SessionSecret   string
	SessionMaxAge   time.Duration
	ImageDir        string
	ArchiveDir      string
	MaxUploadSize   int64
	CleanupInterval time.Duration
	BotToken        string
	BaseURL         string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/filegate.db"),
		SessionSecret:   getEnv("SESSION_SECRET", "dev-secret-change-me"),
		SessionMaxAge:   getEnvDuration("SESSION_MAX_AGE_HOURS", 24*time.Hour),
		ImageDir:        getEnv("IMAGE_DIR", "./storage/images"),
		ArchiveDir:      getEnv("ARCHIVE_DIR", "./storage/archives"),
		MaxUploadSize:   getEnvInt64("MAX_UPLOAD_SIZE", 64*1024*1024), // 64MB
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL_HOURS", 12*time.Hour),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}
