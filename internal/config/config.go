package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	LogLevel      string
	LogJSON       bool
	AllowedOrigin string

	// Lobby lifecycle
	MaxLobbyAge     time.Duration // idle reclamation threshold
	SweepInterval   time.Duration // how often the idle sweeper runs
	DisconnectGrace time.Duration // how long a disconnected player keeps their seat

	// Game pacing
	RoundSeconds     int // drawing round length
	GuessCutoffSec   int // seconds remaining when drawing flips to guessing
	RevealSeconds    int // pause between rounds
	StartCountdown   int // pre-game countdown ticks
	DefaultMaxLobby  int
	AbsoluteMaxLobby int
}

// Load reads configuration from the environment, with .env as a fallback.
// Everything has a default: the server holds no secrets and no external
// connections.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:       envStr("APP_PORT", "8080"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogJSON:       os.Getenv("LOG_JSON") == "true",
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		MaxLobbyAge:     time.Duration(envInt("MAX_LOBBY_AGE_MIN", 30)) * time.Minute,
		SweepInterval:   time.Duration(envInt("SWEEP_INTERVAL_MIN", 5)) * time.Minute,
		DisconnectGrace: time.Duration(envInt("DISCONNECT_GRACE_SEC", 30)) * time.Second,

		RoundSeconds:     envInt("ROUND_SECONDS", 90),
		GuessCutoffSec:   envInt("GUESS_CUTOFF_SECONDS", 30),
		RevealSeconds:    envInt("REVEAL_SECONDS", 5),
		StartCountdown:   envInt("START_COUNTDOWN", 3),
		DefaultMaxLobby:  envInt("DEFAULT_MAX_PLAYERS", 8),
		AbsoluteMaxLobby: envInt("ABSOLUTE_MAX_PLAYERS", 12),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
