package config

import (
	"fmt"
	"os"
	"time"
)

// Engine holds the tuning knobs of the matchmaking/presence core.
// Tests inject much smaller durations.
type Engine struct {
	// GracePeriod is how long a disconnected participant may be absent
	// before the session is terminated.
	GracePeriod time.Duration
	// MaxQueueWait is the starvation threshold: once the oldest waiting
	// user has waited this long, zero-overlap pairing becomes allowed.
	MaxQueueWait time.Duration
	// MatchInterval is the period of the scheduler's pairing tick.
	MatchInterval time.Duration
	// PeerBufferSize bounds the messages held for a disconnected peer.
	PeerBufferSize int
}

// DefaultEngine returns the production tuning.
func DefaultEngine() Engine {
	return Engine{
		GracePeriod:    5 * time.Second,
		MaxQueueWait:   30 * time.Second,
		MatchInterval:  time.Second,
		PeerBufferSize: 32,
	}
}

// Config is the process configuration, read from the environment
// (a .env file is loaded by main via godotenv).
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	AdminPassword string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Addr: getenv("ADDR", ":8080"),
		PostgresDSN: fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getenv("DB_HOST", "localhost"),
			getenv("DB_USER", "user"),
			getenv("DB_PASSWORD", "password"),
			getenv("DB_NAME", "kindreddb"),
			getenv("DB_PORT", "5432"),
		),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
