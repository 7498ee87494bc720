package game

import (
	"errors"
	"time"
)

// MaxAnswerLength is the size of the digit pool 1..9.
const MaxAnswerLength = len(digitPool)

var digitPool = [...]int{1, 2, 3, 4, 5, 6, 7, 8, 9}

var ErrInvalidConfig = errors.New("error.invalid_game_config")

type Config struct {
	AnswerLength        int   `json:"answerLength"`
	PlayerTimeoutMillis int64 `json:"playerTimeoutMillis"`
}

func DefaultConfig() Config {
	return Config{
		AnswerLength:        4,
		PlayerTimeoutMillis: 60 * 1000,
	}
}

func (c Config) TurnTimeout() time.Duration {
	return time.Duration(c.PlayerTimeoutMillis) * time.Millisecond
}

func (c Config) Validate() error {
	if c.AnswerLength < 1 || c.AnswerLength > MaxAnswerLength {
		return ErrInvalidConfig
	}
	if c.PlayerTimeoutMillis <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
