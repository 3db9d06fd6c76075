package workspace

import "sync"

// rootFuture resolves exactly once to the root directory path or an error.
//
// Callbacks registered before resolution are queued and invoked one after
// another, in registration order, by the resolving goroutine. Callbacks
// registered after resolution run immediately on the caller's goroutine.
// Callbacks must not block.
type rootFuture struct {
	mu       sync.Mutex
	started  bool
	resolved bool
	draining bool
	path     string
	err      error
	waiters  []func(path string, err error)
}

// start runs create in the background the first time it is called and
// reports whether this call was the one that started it.
func (f *rootFuture) start(create func() (string, error)) bool {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return false
	}
	f.started = true
	f.mu.Unlock()

	go func() {
		f.resolve(create())
	}()
	return true
}

// isStarted reports whether creation has been triggered.
func (f *rootFuture) isStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// then registers fn to receive the resolved outcome.
func (f *rootFuture) then(fn func(path string, err error)) {
	f.mu.Lock()
	if !f.resolved || f.draining {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()
		return
	}
	path, err := f.path, f.err
	f.mu.Unlock()
	fn(path, err)
}

// wait blocks until the future resolves and returns its outcome.
func (f *rootFuture) wait() (string, error) {
	type outcome struct {
		path string
		err  error
	}
	ch := make(chan outcome, 1)
	f.then(func(path string, err error) {
		ch <- outcome{path: path, err: err}
	})
	o := <-ch
	return o.path, o.err
}

// resolve records the outcome and drains the waiter queue in FIFO order.
// Waiters that register while the queue drains are appended to it, so no
// late caller overtakes an earlier one.
func (f *rootFuture) resolve(path string, err error) {
	f.mu.Lock()
	f.path, f.err = path, err
	f.resolved = true
	f.draining = true
	for len(f.waiters) > 0 {
		fn := f.waiters[0]
		f.waiters = f.waiters[1:]
		f.mu.Unlock()
		fn(path, err)
		f.mu.Lock()
	}
	f.waiters = nil
	f.draining = false
	f.mu.Unlock()
}
