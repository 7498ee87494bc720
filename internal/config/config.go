package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"guessroom/internal/game"
	"guessroom/internal/room"
)

type Config struct {
	Port           string
	DatabaseURL    string
	LogLevel       string
	AllowedOrigins []string

	GCInterval      time.Duration
	EmptyRoomTTL    time.Duration
	OccupiedRoomTTL time.Duration

	MaxPlayers   int
	AnswerLength int
	TurnTimeout  time.Duration
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "8085"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		GCInterval:      getEnvDuration("GC_INTERVAL", 30*time.Second),
		EmptyRoomTTL:    getEnvDuration("EMPTY_ROOM_TTL", 5*time.Minute),
		OccupiedRoomTTL: getEnvDuration("OCCUPIED_ROOM_TTL", time.Hour),
		MaxPlayers:      getEnvInt("MAX_PLAYERS", 8),
		AnswerLength:    getEnvInt("ANSWER_LENGTH", 4),
		TurnTimeout:     getEnvDuration("TURN_TIMEOUT", 60*time.Second),
	}
	return cfg
}

// Room is the config every new room starts with.
func (c Config) Room() room.Config {
	return room.Config{
		MaxPlayers: c.MaxPlayers,
		Game: game.Config{
			AnswerLength:        c.AnswerLength,
			PlayerTimeoutMillis: c.TurnTimeout.Milliseconds(),
		},
	}
}

// Validate rejects a room config no room could run with.
func (c Config) Validate() error {
	if err := c.Room().Validate(); err != nil {
		return fmt.Errorf("room config (MAX_PLAYERS=%d ANSWER_LENGTH=%d TURN_TIMEOUT=%s): %w",
			c.MaxPlayers, c.AnswerLength, c.TurnTimeout, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
