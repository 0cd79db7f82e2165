package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/bookstore/internal/app"
	"github.com/ahinestrog/bookstore/internal/config"
	"github.com/ahinestrog/bookstore/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	cfg, err := config.Load("configs", env)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := logging.Init(logging.Options{
		Component: cfg.App.Name,
		Level:     cfg.App.LogLevel,
		Console:   cfg.App.Env == "dev",
		FilePath:  cfg.App.LogFile,
	})
	logger.Info().
		Str("env", cfg.App.Env).
		Str("http", cfg.App.HTTPAddr).
		Str("grpc", cfg.App.GRPCAddr).
		Str("db", cfg.SQLite.Path).
		Msg("starting bookstore")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("stopped with error")
		a.Close()
		os.Exit(1)
	}
}
