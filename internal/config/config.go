package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string
	ServerURL   string

	FFmpegPath  string
	FFprobePath string

	MaxSessions     int
	SessionMaxAge   time.Duration
	MediaTokenTTL   time.Duration
	ProbeCacheTTL   time.Duration
	ProbeBatchSize  int
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://mydia:mydia@db:5432/mydia?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   env("JWT_SECRET", "change-me-in-production"),
		ServerURL:   env("SERVER_URL", "http://localhost:8080"),

		FFmpegPath:  env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: env("FFPROBE_PATH", "ffprobe"),

		MaxSessions:    envInt("MAX_SESSIONS", 4),
		SessionMaxAge:  envDuration("SESSION_MAX_AGE", 30*time.Minute),
		MediaTokenTTL:  envDuration("MEDIA_TOKEN_TTL", 6*time.Hour),
		ProbeCacheTTL:  envDuration("PROBE_CACHE_TTL", 24*time.Hour),
		ProbeBatchSize: envInt("PROBE_BATCH_SIZE", 50),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i := cast.ToInt(v); i != 0 {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d := cast.ToDuration(v); d != 0 {
			return d
		}
	}
	return fallback
}
