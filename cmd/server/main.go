package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avheld/coview/internal/adapters/http"
	"github.com/avheld/coview/internal/app"
	"github.com/avheld/coview/internal/config"
	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/history"
	"github.com/avheld/coview/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.HistoryPath).Msg("chat history unavailable, continuing without it")
		store = nil
	}
	defer func() { _ = store.Close() }()

	m := metrics.New()
	promReg := prometheus.NewRegistry()
	if err := m.Register(promReg); err != nil {
		log.Error().Err(err).Msg("metrics registration failed")
	}

	rooms := core.NewRegistry()
	defer rooms.Reset()

	orch := &app.Orchestrator{
		Conns:   app.NewConnRegistry(),
		Rooms:   rooms,
		History: store,
		Metrics: m,
	}

	r := router.SetupRouter(ctx, cfg, orch, promReg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("CoView gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
