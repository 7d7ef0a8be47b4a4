package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port            string
	DBPath          string
	GracePeriod     time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration
	StrictTeamCheck bool
}

const (
	defaultPort            = "8080"
	defaultDBPath          = "data/spectrum.db"
	defaultGracePeriod     = 5 * time.Minute
	defaultRetention       = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// Load builds a Config from the environment, reading a local .env file first
// when one exists.
func Load() Config {
	if err := godotenv.Load(".env.local"); err != nil {
		godotenv.Load()
	}

	return Config{
		Port:            getEnv("PORT", defaultPort),
		DBPath:          getEnv("DB_PATH", defaultDBPath),
		GracePeriod:     getDuration("ROOM_GRACE_PERIOD", defaultGracePeriod),
		Retention:       getDuration("ROOM_RETENTION", defaultRetention),
		CleanupInterval: getDuration("CLEANUP_INTERVAL", defaultCleanupInterval),
		StrictTeamCheck: getBool("STRICT_TEAM_CHECK", false),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}
