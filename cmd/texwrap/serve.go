package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/seantiz/texwrap/internal/api"
	"github.com/seantiz/texwrap/internal/config"
)

// ServeCmd runs the HTTP service.
type ServeCmd struct {
	Addr string `help:"Listen address. Overrides TEXWRAP_LISTEN_ADDR."`
}

func (c *ServeCmd) Run(cfg *config.Config) error {
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	addr := cfg.ListenAddr
	if c.Addr != "" {
		addr = c.Addr
	}

	logger.Info("texwrap: starting",
		"listen_addr", addr,
		"db_path", cfg.DBPath,
		"backend", cfg.Backend,
	)

	svc, err := newServices(*cfg, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("close services", "error", err)
		}
	}()

	srv := api.NewServer(addr, svc.store, svc.registry, svc.engine, api.Options{
		DefaultFormat:  cfg.DefaultFormat,
		CommandAllowed: cfg.CommandAllowed,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
