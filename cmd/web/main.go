package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"guessroom/internal/config"
	"guessroom/internal/logger"
	"guessroom/internal/server"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
