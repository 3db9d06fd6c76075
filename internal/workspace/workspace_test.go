package workspace

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := NewManager(t.TempDir(), "", logger)
	t.Cleanup(m.Shutdown)
	return m
}

// gateRoot makes root creation block until the returned release func is called.
func gateRoot(m *Manager) (release func(err error), calls *atomic.Int32) {
	calls = &atomic.Int32{}
	gate := make(chan error)
	orig := m.mkdirTemp
	m.mkdirTemp = func(dir, pattern string) (string, error) {
		calls.Add(1)
		if err := <-gate; err != nil {
			return "", err
		}
		return orig(dir, pattern)
	}
	return func(err error) { gate <- err }, calls
}

// waitForWaiters polls until n callbacks are queued on the root future.
func waitForWaiters(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m.root.mu.Lock()
		queued := len(m.root.waiters)
		m.root.mu.Unlock()
		if queued >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d queued waiters", n)
}

func TestAllocateSequentialIDs(t *testing.T) {
	m := newTestManager(t)

	var root string
	for want := int64(0); want < 3; want++ {
		ws, err := m.Allocate()
		if err != nil {
			t.Fatalf("Allocate() failed: %v", err)
		}
		if ws.ID != want {
			t.Errorf("ID = %d, want %d", ws.ID, want)
		}
		if info, err := os.Stat(ws.Path); err != nil || !info.IsDir() {
			t.Errorf("workspace directory missing: %s", ws.Path)
		}
		if root == "" {
			root = filepath.Dir(ws.Path)
		} else if filepath.Dir(ws.Path) != root {
			t.Errorf("workspace %s not under root %s", ws.Path, root)
		}
	}
}

func TestRootCreatedOnce(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Root()
	if err != nil {
		t.Fatalf("Root() failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(first), DefaultPrefix) {
		t.Errorf("root %q does not carry prefix %q", first, DefaultPrefix)
	}
	m.Init()
	second, err := m.Root()
	if err != nil {
		t.Fatalf("second Root() failed: %v", err)
	}
	if first != second {
		t.Errorf("root changed between calls: %s vs %s", first, second)
	}
}

func TestTeardownRemovesWorkspaceOnce(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Allocate()
	if err != nil {
		t.Fatalf("Allocate() failed: %v", err)
	}
	if err := os.WriteFile(ws.File("texput.tex"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	m.Teardown(ws)
	if _, err := os.Stat(ws.Path); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after teardown: %s", ws.Path)
	}

	// Recreate the directory: a second teardown must not touch it.
	if err := os.MkdirAll(ws.Path, 0o750); err != nil {
		t.Fatalf("recreate dir: %v", err)
	}
	m.Teardown(ws)
	if _, err := os.Stat(ws.Path); err != nil {
		t.Errorf("second teardown removed the directory again")
	}

	m.Teardown(nil)
}

func TestShutdownRemovesRoot(t *testing.T) {
	m := newTestManager(t)

	root, err := m.Root()
	if err != nil {
		t.Fatalf("Root() failed: %v", err)
	}
	if _, err := m.Allocate(); err != nil {
		t.Fatalf("Allocate() failed: %v", err)
	}

	m.Shutdown()
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("root still exists after shutdown: %s", root)
	}
	m.Shutdown()
}

func TestShutdownWithoutInitIsNoop(t *testing.T) {
	m := newTestManager(t)
	m.Shutdown()
	if m.root.isStarted() {
		t.Error("Shutdown started root creation")
	}
}

func TestRootFailureSharedByAllCallers(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(parent, []byte("file"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	m := NewManager(parent, "", logger)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			_, errs[i] = m.Allocate()
		})
	}
	wg.Wait()

	var first *Error
	if !errors.As(errs[0], &first) {
		t.Fatalf("error = %v, want *workspace.Error", errs[0])
	}
	for i, err := range errs {
		var we *Error
		if !errors.As(err, &we) {
			t.Fatalf("errs[%d] = %v, want *workspace.Error", i, err)
		}
		if we.Err != first.Err {
			t.Errorf("errs[%d] cause = %v, want identical %v", i, we.Err, first.Err)
		}
	}
}

func TestConcurrentAllocateBeforeRootResolved(t *testing.T) {
	m := newTestManager(t)
	release, calls := gateRoot(m)

	const n = 10
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			ws, err := m.Allocate()
			errs[i] = err
			if ws != nil {
				ids[i] = ws.ID
			}
		})
	}

	waitForWaiters(t, m, n)
	release(nil)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("root created %d times, want 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Allocate[%d] failed: %v", i, err)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int64(i) {
			t.Fatalf("ids = %v, want 0..%d without gaps or reuse", ids, n-1)
		}
	}
}

func TestConcurrentAllocateSharesRootError(t *testing.T) {
	m := newTestManager(t)
	release, _ := gateRoot(m)

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			_, errs[i] = m.Allocate()
		})
	}

	waitForWaiters(t, m, n)
	rootErr := errors.New("disk full")
	release(rootErr)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, rootErr) {
			t.Errorf("errs[%d] = %v, want %v", i, err, rootErr)
		}
	}
}

func TestQueuedWaitersReleasedInOrder(t *testing.T) {
	m := newTestManager(t)
	release, _ := gateRoot(m)
	m.Init()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := range 5 {
		wg.Add(1)
		m.root.then(func(string, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	release(nil)
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("release order = %v, want ascending", order)
		}
	}
}
