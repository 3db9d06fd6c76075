package main

import (
	"fmt"
	"log/slog"

	"github.com/seantiz/texwrap/internal/backend"
	"github.com/seantiz/texwrap/internal/config"
	"github.com/seantiz/texwrap/internal/engine"
	"github.com/seantiz/texwrap/internal/store"
	"github.com/seantiz/texwrap/internal/workspace"
)

// services is the wired compile pipeline shared by the subcommands.
type services struct {
	store    *store.SQLiteStore
	registry *backend.Registry
	engine   *engine.Engine
}

func newServices(cfg config.Config, dbPath string, logger *slog.Logger) (*services, error) {
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	reg := backend.NewRegistry()
	reg.Register(backend.ProcessBackendName, backend.NewProcessBackend(logger))
	reg.Register(backend.StubBackendName, &backend.StubBackend{})
	if _, err := reg.Resolve(cfg.Backend); err != nil {
		db.Close()
		return nil, err
	}

	ws := workspace.NewManager(cfg.WorkspaceParent, cfg.WorkspacePrefix, logger)
	return &services{
		store:    db,
		registry: reg,
		engine:   engine.New(ws, reg, cfg.Backend, db, logger),
	}, nil
}

// Close waits for in-flight compiles, removes the workspace root and
// closes the database.
func (s *services) Close() error {
	s.engine.Shutdown()
	return s.store.Close()
}
