// Sibling-context peer: synchronizes over the local relay with no gateway
// involved. Surfaces here are log-only stand-ins; a real embed provides a
// player.Surface around its media provider and registers it the same way.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/config"
	"github.com/avheld/coview/internal/domain"
	"github.com/avheld/coview/internal/metrics"
	"github.com/avheld/coview/internal/player"
	"github.com/avheld/coview/internal/relay"
)

type logSurface struct {
	id domain.ClipID
}

func (s *logSurface) Play() error {
	log.Info().Str("module", "local").Str("clip", string(s.id)).Msg("play")
	return nil
}

func (s *logSurface) Pause() error {
	log.Info().Str("module", "local").Str("clip", string(s.id)).Msg("pause")
	return nil
}

func (s *logSurface) SeekTo(position float64) error {
	log.Info().Str("module", "local").Str("clip", string(s.id)).Float64("position", position).Msg("seek")
	return nil
}

func (s *logSurface) Destroy() {
	log.Info().Str("module", "local").Str("clip", string(s.id)).Msg("destroy")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	m := metrics.New()

	// A Bus only reaches subscribers inside one process; standalone peers
	// share nothing but the slot directory, so the slot is the transport
	// here. Embedders hosting several contexts in one process pass a
	// shared Bus ahead of it.
	slot := relay.NewSlot(cfg.RelayDir, cfg.SlotDepth)
	slot.Metrics = m

	originID := uuid.NewString()
	rly, err := relay.New(originID, slot)
	if err != nil {
		log.Fatal().Err(err).Msg("no relay transport available")
	}
	defer func() { _ = rly.Close() }()

	agg := player.NewAggregator(player.Options{
		Stagger:     cfg.Stagger,
		RetryDelay:  cfg.RetryDelay,
		BufferRetry: cfg.BufferRetry,
	}, rly)

	clip := domain.Clip{ID: domain.ClipID(uuid.NewString())}
	agg.Add(clip, &logSurface{id: clip.ID})
	agg.OnReady(clip.ID)

	unsubscribe, err := rly.Subscribe(agg.HandleEvent)
	if err != nil {
		log.Fatal().Err(err).Msg("relay subscribe failed")
	}
	defer unsubscribe()

	log.Info().Str("origin", originID).Str("relay_dir", cfg.RelayDir).Msg("local peer started")
	<-ctx.Done()
	log.Info().Msg("local peer exiting")
}
