package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"salun/config"
	"salun/internal/logger"
	"salun/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	path := flag.String("config", "salun.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.Server.Env, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
