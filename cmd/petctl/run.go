package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/petctl/internal/config"
	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/rest"
	"github.com/danmuck/petctl/internal/service"
	"github.com/danmuck/petctl/internal/store"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// run wires the coordinator, the event loop and the HTTP API, and blocks
// until ctx is done or the API fails.
func run(ctx context.Context, cfg config.Config) error {
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	var (
		opts   service.Options
		reader rest.RoundReader
		rounds *store.RoundStore
	)
	if cfg.Store.Enabled {
		rounds, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := rounds.Close(); err != nil {
				log.Error().Err(err).Msg("petctl: close round store")
			}
		}()
		opts.Rounds = rounds
		reader = rounds
	}

	coord, err := newCoordinator(settings, rounds)
	if err != nil {
		return err
	}

	svc, handle := service.New(coord, opts)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		svc.Run()
	}()

	apiHandle := handle.Clone()
	srv := rest.New(cfg.REST(), apiHandle, reader)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	log.Info().
		Str("coordinator_pk", coord.PublicKey().String()).
		Str("addr", cfg.API.Addr).
		Bool("store", cfg.Store.Enabled).
		Msg("petctl: started")

	err = heartbeat(ctx, handle, cfg.Heartbeat.Duration, serveErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = fmt.Errorf("shutdown api: %w", serr)
	}
	apiHandle.Close()
	handle.Close()
	<-loopDone
	log.Info().Msg("petctl: stopped")
	return err
}

// newCoordinator builds the coordinator, continuing round ids after the
// latest round in rounds so a restart never reuses a recorded id.
func newCoordinator(settings coordinator.Settings, rounds *store.RoundStore) (*coordinator.Coordinator, error) {
	if rounds != nil {
		latest, err := rounds.LatestRound()
		switch {
		case err == nil:
			settings.LastRound = latest.RoundID
			log.Info().Uint64("round", latest.RoundID).Msg("petctl: resuming after last completed round on disk")
		case errors.Is(err, store.ErrNotFound):
		default:
			return nil, fmt.Errorf("read round history: %w", err)
		}
	}
	return coordinator.New(settings)
}

// heartbeat polls the round parameters every interval so an idle
// coordinator starts its next round, and logs the current round.
func heartbeat(ctx context.Context, handle *service.Handle, interval time.Duration, serveErr <-chan error) error {
	if interval <= 0 {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			return err
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := uint64(0)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("petctl: shutdown")
			return nil
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("api: %w", err)
			}
			return nil
		case <-ticker.C:
			qctx, cancel := context.WithTimeout(ctx, interval)
			params, err := handle.RoundParameters(qctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("petctl: heartbeat query failed")
				continue
			}
			ev := log.Debug()
			if params.RoundID != last {
				ev = log.Info()
				last = params.RoundID
			}
			ev.Uint64("round", params.RoundID).Msg("petctl: heartbeat")
		}
	}
}
