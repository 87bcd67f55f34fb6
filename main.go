package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shahabahmd/soil-vegetation-detection/config"
	"github.com/shahabahmd/soil-vegetation-detection/internal/detect"
	"github.com/shahabahmd/soil-vegetation-detection/internal/screen"
	"github.com/shahabahmd/soil-vegetation-detection/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := detect.NewClient(cfg.PredictURL)
	if err := client.CheckHealth(ctx); err != nil {
		log.Warn().Err(err).Str("predictURL", cfg.PredictURL).Msg("prediction service not reachable")
	}

	sessions := screen.NewStore(client, cfg.SessionTTL)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: web.NewServer(sessions).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Str("predictURL", cfg.PredictURL).Msg("serving detection UI")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sessions.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
