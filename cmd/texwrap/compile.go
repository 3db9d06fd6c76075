package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/texwrap/internal/config"
	"github.com/seantiz/texwrap/internal/engine"
	"github.com/seantiz/texwrap/internal/watch"
)

// CompileCmd compiles files from the command line.
type CompileCmd struct {
	Files   []string `arg:"" type:"existingfile" help:"LaTeX source files."`
	Output  string   `short:"o" type:"path" help:"Directory for artifacts. Defaults to each source's directory."`
	Format  string   `short:"f" help:"Output format. Defaults to TEXWRAP_DEFAULT_FORMAT or pdf."`
	Command string   `help:"Engine executable to run instead of the default for the format."`
	Jobs    int      `short:"j" default:"4" help:"Maximum concurrent compiles."`
	Watch   bool     `short:"w" help:"Recompile when a source file changes."`

	outMu  sync.Mutex `kong:"-"`
	stdout io.Writer  `kong:"-"`
	stderr io.Writer  `kong:"-"`
}

func (c *CompileCmd) Run(cfg *config.Config) error {
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.stderr == nil {
		c.stderr = os.Stderr
	}
	if c.Format == "" {
		c.Format = cfg.DefaultFormat
	}
	logger := config.NewTextLogger(lockedWriter{&c.outMu, c.stderr}, cfg.LogLevel)

	svc, err := newServices(*cfg, ":memory:", logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	err = c.compileAll(svc.engine)
	if !c.Watch {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.watch(ctx, svc.engine, logger)
}

// compileAll compiles every file, at most Jobs at a time.
func (c *CompileCmd) compileAll(eng *engine.Engine) error {
	var g errgroup.Group
	if c.Jobs > 0 {
		g.SetLimit(c.Jobs)
	}

	var failed atomic.Int32
	for _, f := range c.Files {
		g.Go(func() error {
			if !c.compileOne(eng, f) {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d files failed to compile", n, len(c.Files))
	}
	return nil
}

func (c *CompileCmd) watch(ctx context.Context, eng *engine.Engine, logger *slog.Logger) error {
	w, err := watch.New(c.Files, watch.DefaultDebounce, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "watching %d file(s), press Ctrl-C to stop\n", len(c.Files))
	return w.Run(ctx, func(path string) {
		c.compileOne(eng, path)
	})
}

// compileOne compiles path and writes the artifact, reporting the outcome.
// It reports whether the compile succeeded.
func (c *CompileCmd) compileOne(eng *engine.Engine, path string) bool {
	out, n, err := c.compileFile(eng, path)

	c.outMu.Lock()
	defer c.outMu.Unlock()
	if err != nil {
		c.report(path, err)
		return false
	}
	fmt.Fprintf(c.stdout, "%s -> %s (%d bytes)\n", path, out, n)
	return true
}

func (c *CompileCmd) compileFile(eng *engine.Engine, path string) (string, int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer src.Close()

	res, err := eng.Submit(src, engine.Options{Format: c.Format, Command: c.Command})
	if err != nil {
		return "", 0, err
	}
	defer res.Close()

	dir := c.Output
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(dir, stem+"."+c.Format)

	// Stream into a temp file so a failed compile leaves the previous
	// artifact untouched.
	tmp, err := os.CreateTemp(dir, "."+stem+"-*")
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(tmp, res)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	return out, n, nil
}

// report prints err for path. Callers hold outMu.
func (c *CompileCmd) report(path string, err error) {
	var cerr *engine.Error
	if errors.As(err, &cerr) && cerr.Kind == engine.KindSyntax {
		fmt.Fprintf(c.stderr, "%s: %s\n%s", path, cerr.Message, cerr.Trace)
		if !strings.HasSuffix(cerr.Trace, "\n") {
			fmt.Fprintln(c.stderr)
		}
		return
	}
	fmt.Fprintf(c.stderr, "%s: %v\n", path, err)
}

// lockedWriter keeps log records from interleaving with compile reports.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
