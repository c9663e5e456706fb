package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"symptom-meal-planner/internal/app"
	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/logging"
	"symptom-meal-planner/internal/telegram"

	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// 2. Recipes, metrics database and completion client
	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	a, err := app.New(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, a.Planner(), a.Metrics())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           bot.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("telegram bot server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Plans still being generated need the database and completion client,
	// which the deferred a.Close releases.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.CompletionTimeout+10*time.Second)
	defer cancelDrain()
	if err := bot.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Msg("gave up waiting for in-flight messages")
	}
	log.Info().Msg("server exiting")
}
