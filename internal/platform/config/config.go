// Package config holds runtime configuration for the match server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds tuned parameters for the server and the match engine.
type Config struct {
	ListenAddr string
	PublicURL  string // Base URL encoded into the lobby join QR code
	DBPath     string

	MinPlayers    int
	NightDuration time.Duration
	DayDuration   time.Duration
}

// Default returns sensible defaults for production.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		PublicURL:     "http://localhost:8080",
		DBPath:        "contagio.db",
		MinPlayers:    8,
		NightDuration: 60 * time.Second,
		DayDuration:   120 * time.Second,
	}
}

// Load reads configuration from a .env file (if present) and the environment,
// falling back to defaults for anything unset.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("CONTAGIO_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CONTAGIO_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("CONTAGIO_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v, err := strconv.Atoi(os.Getenv("CONTAGIO_MIN_PLAYERS")); err == nil && v > 0 {
		cfg.MinPlayers = v
	}
	if v, err := strconv.Atoi(os.Getenv("CONTAGIO_NIGHT_SECONDS")); err == nil && v > 0 {
		cfg.NightDuration = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("CONTAGIO_DAY_SECONDS")); err == nil && v > 0 {
		cfg.DayDuration = time.Duration(v) * time.Second
	}
	return cfg
}
