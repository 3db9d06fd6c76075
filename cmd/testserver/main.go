// testserver starts a texwrap API server on the stub backend, so the HTTP
// surface can be exercised without a TeX installation.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seantiz/texwrap/internal/api"
	"github.com/seantiz/texwrap/internal/backend"
	"github.com/seantiz/texwrap/internal/config"
	"github.com/seantiz/texwrap/internal/engine"
	"github.com/seantiz/texwrap/internal/store"
	"github.com/seantiz/texwrap/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	reg := backend.NewRegistry()
	reg.Register(backend.StubBackendName, &backend.StubBackend{Delay: 250 * time.Millisecond})

	ws := workspace.NewManager(cfg.WorkspaceParent, cfg.WorkspacePrefix, logger)
	eng := engine.New(ws, reg, backend.StubBackendName, db, logger)
	defer eng.Shutdown()

	srv := api.NewServer(cfg.ListenAddr, db, reg, eng, api.Options{
		DefaultFormat:  cfg.DefaultFormat,
		CommandAllowed: cfg.CommandAllowed,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, logger)

	logger.Info("testserver: listening", "addr", cfg.ListenAddr, "backend", backend.StubBackendName)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
