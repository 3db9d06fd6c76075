package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPrefix is the name prefix of the per-process root directory.
const DefaultPrefix = "texwrap-"

// Error reports a failure to create the root directory or a request workspace.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Workspace is a directory owned by a single compile request.
type Workspace struct {
	ID        int64
	Path      string
	CreatedAt time.Time

	teardown sync.Once
}

// File returns the path of name inside the workspace.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.Path, name)
}

// Manager owns the process-wide root directory and hands out workspaces.
// It is safe for concurrent use.
type Manager struct {
	parent string
	prefix string
	logger *slog.Logger

	root         rootFuture
	nextID       atomic.Int64
	shutdownOnce sync.Once

	mkdirTemp func(dir, pattern string) (string, error)
}

// NewManager creates a manager whose root directory will be created under
// parent (the OS temp dir when empty) with the given name prefix.
func NewManager(parent, prefix string, logger *slog.Logger) *Manager {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{
		parent:    parent,
		prefix:    prefix,
		logger:    logger,
		mkdirTemp: os.MkdirTemp,
	}
}

// Init starts creating the root directory. Only the first call has any effect.
func (m *Manager) Init() {
	m.root.start(m.createRoot)
}

func (m *Manager) createRoot() (string, error) {
	dir, err := m.mkdirTemp(m.parent, m.prefix)
	if err != nil {
		m.logger.Error("failed to create workspace root", "parent", m.parent, "error", err)
		return "", err
	}
	m.logger.Debug("workspace root created", "path", dir)
	return dir, nil
}

// Root triggers initialization and blocks until the root directory exists.
func (m *Manager) Root() (string, error) {
	m.Init()
	return m.root.wait()
}

// Started reports whether root creation has been triggered.
func (m *Manager) Started() bool {
	return m.root.isStarted()
}

// Allocate creates a fresh workspace below the root. IDs start at 0 and are
// assigned in the order callers queued on the root directory.
func (m *Manager) Allocate() (*Workspace, error) {
	m.Init()

	type slot struct {
		root string
		id   int64
		err  error
	}
	ch := make(chan slot, 1)
	m.root.then(func(root string, err error) {
		if err != nil {
			ch <- slot{err: err}
			return
		}
		ch <- slot{root: root, id: m.nextID.Add(1) - 1}
	})
	s := <-ch
	if s.err != nil {
		return nil, &Error{Op: "create root", Err: s.err}
	}

	path := filepath.Join(s.root, strconv.FormatInt(s.id, 10))
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, &Error{Op: "create workspace", Err: err}
	}

	m.logger.Debug("workspace allocated", "workspace_id", s.id, "path", path)
	return &Workspace{
		ID:        s.id,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Teardown removes the workspace directory. It runs at most once per
// workspace; removal errors are logged and otherwise ignored.
func (m *Manager) Teardown(ws *Workspace) {
	if ws == nil {
		return
	}
	ws.teardown.Do(func() {
		if err := os.RemoveAll(ws.Path); err != nil {
			m.logger.Debug("workspace teardown failed", "workspace_id", ws.ID, "path", ws.Path, "error", err)
			return
		}
		m.logger.Debug("workspace removed", "workspace_id", ws.ID)
	})
}

// Shutdown removes the root directory. It is meant to run once at process
// exit and is best-effort.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		if !m.root.isStarted() {
			return
		}
		root, err := m.root.wait()
		if err != nil {
			return
		}
		if err := os.RemoveAll(root); err != nil {
			m.logger.Warn("failed to remove workspace root", "path", root, "error", err)
			return
		}
		m.logger.Info("workspace root removed", "path", root)
	})
}
