// Package server boots the reference backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"salun/config"
	"salun/internal/database"
	"salun/internal/router"
	"salun/internal/service"
	"salun/internal/ws"
	"salun/pkg/cloudinary"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// Run migrates the database, serves the API and push socket, and shuts down
// gracefully when ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := database.SeedAdmin(db, &cfg.Database); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return fmt.Errorf("cloudinary: %w", err)
		}
	} else {
		log.Info().Msg("[cloudinary] reward images disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}

	fcm := service.NewFCMService(cfg.Firebase.CredentialsFile)
	switch {
	case fcm != nil:
		log.Info().Msg("[FCM] push notifications enabled")
	case cfg.Firebase.CredentialsFile != "":
		log.Warn().Msg("[FCM] push notifications disabled: failed to init (check credentials file)")
	default:
		log.Info().Msg("[FCM] push notifications disabled: set GOOGLE_APPLICATION_CREDENTIALS to enable")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	engine := router.Setup(ctx, cfg, db, cloud, fcm, ws.NewHub())
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down...")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
