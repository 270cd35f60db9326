// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
	"github.com/go-core-stack/perfrec-auth/pkg/config"
	"github.com/go-core-stack/perfrec-auth/pkg/keys"
	"github.com/go-core-stack/perfrec-auth/pkg/logging"
	"github.com/go-core-stack/perfrec-auth/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCloser, err := logging.Setup(cfg.Common)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid logging configuration")
	}
	defer logCloser.Close()

	dir, err := loadKeys(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load key directory")
	}

	verifier := auth.NewVerifier(dir, auth.WithWindow(cfg.SkewWindow))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(verifier, cfg.MaxBodyBytes),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Int("apps", dir.Len()).
			Int("skew_window_minutes", cfg.SkewWindow).
			Msg("starting perfrec auth service")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	waitForShutdown(context.Background(), srv, cfg.GracefulShutdownTimeout)
}

// loadKeys builds the key directory once, preferring Redis when configured,
// then the keys file, then the built-in defaults.
func loadKeys(cfg config.Config) (*keys.Directory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var sources []keys.Source
	if cfg.KeysRedisAddr != "" {
		redisSource := keys.NewRedisSource(cfg.KeysRedisAddr, cfg.KeysRedisPassword, cfg.KeysRedisDB, cfg.KeysRedisKey)
		defer redisSource.Close()
		sources = append(sources, redisSource)
	}
	sources = append(sources, keys.FileSource{Path: cfg.KeysFile})

	return keys.Load(ctx, sources...)
}

func waitForShutdown(ctx context.Context, srv *http.Server, timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	log.Info().Msg("shutting down perfrec auth service")

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	log.Info().Msg("service stopped")
}
