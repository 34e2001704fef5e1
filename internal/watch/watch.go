// Package watch drives ingestion from a drop directory: it picks up
// pre-existing and newly created files, waits for a write-quiet period,
// runs each file through the pipeline and relocates it to the processed
// or failed directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"salesink/internal/loader"
)

// ProcessFunc runs the pipeline for one file. A nil error means the
// file was loaded (possibly with isolated row errors).
type ProcessFunc func(ctx context.Context, path string) (*loader.Outcome, error)

// recognized upload extensions; everything else is ignored.
var recognizedExts = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// Driver watches one directory and dispatches qualifying files.
type Driver struct {
	Dir          string
	ProcessedDir string
	FailedDir    string
	Quiet        time.Duration // no-event window before a file is ready
	Process      ProcessFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// Run watches until ctx is cancelled. Files already present at startup
// are scheduled immediately.
func (d *Driver) Run(ctx context.Context) error {
	for _, dir := range []string{d.Dir, d.ProcessedDir, d.FailedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(d.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", d.Dir, err)
	}

	d.timers = make(map[string]*time.Timer)

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", d.Dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(d.Dir, entry.Name())
		if Qualifies(path) {
			d.schedule(ctx, path)
		}
	}

	slog.Info("watching drop directory", "dir", d.Dir, "quiet_period", d.Quiet)

	for {
		select {
		case <-ctx.Done():
			d.stopTimers()
			d.wg.Wait()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				d.wg.Wait()
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if Qualifies(event.Name) {
				d.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				d.wg.Wait()
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// Qualifies filters to recognized extensions and skips hidden files.
func Qualifies(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return recognizedExts[strings.ToLower(filepath.Ext(base))]
}

// schedule (re)starts the quiet-period timer for a file. Each write
// event pushes the deadline out; the file is handled once events stop.
func (d *Driver) schedule(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.timers[path] = time.AfterFunc(d.Quiet, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.Handle(ctx, path)
		}()
	})
}

func (d *Driver) stopTimers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}

// Handle runs one file through the pipeline and relocates it. Failures
// of one file never block another. An in-flight load has no
// cancellation mechanism: shutdown stops scheduling new files, but a
// load already started runs to completion, so the pipeline is detached
// from the watcher's cancellation.
func (d *Driver) Handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Already moved or deleted between the event and the timer.
		return
	}

	outcome, err := d.Process(context.WithoutCancel(ctx), path)
	if err != nil {
		slog.Error("file failed", "file", path, "error", err)
		d.relocate(path, d.FailedDir)
		return
	}

	slog.Info("file processed",
		"file", path,
		"table", outcome.Table,
		"inserted", outcome.SuccessCount,
		"row_errors", outcome.ErrorCount,
	)
	d.relocate(path, d.ProcessedDir)
}

// relocate moves the file preserving its original name.
func (d *Driver) relocate(path, dir string) {
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		slog.Error("relocate failed", "file", path, "dest", dest, "error", err)
	}
}
