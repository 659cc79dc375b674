package source

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the write bursts session writers produce into
// one re-ingest per file.
const debounceDelay = 250 * time.Millisecond

// sweepInterval bounds how stale a derived status can get when a
// session goes quiet without any filesystem activity.
const sweepInterval = 5 * time.Second

// Watcher monitors a projects directory tree for JSONL session logs and
// feeds changes to the ingester.
type Watcher struct {
	projectsDir string
	ingester    *Ingester
	fsw         *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher over the projects directory. The
// directory is created if it does not exist yet.
func NewWatcher(projectsDir string, ingester *Ingester) (*Watcher, error) {
	if err := os.MkdirAll(projectsDir, 0755); err != nil {
		return nil, fmt.Errorf("create projects directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	return &Watcher{
		projectsDir: projectsDir,
		ingester:    ingester,
		fsw:         fsw,
		timers:      make(map[string]*time.Timer),
	}, nil
}

// Run ingests the existing session files, then watches for changes
// until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.addTree(w.projectsDir); err != nil {
		return err
	}

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[source] watch error: %v", err)
		case now := <-sweep.C:
			w.ingester.Sweep(now)
		}
	}
}

// addTree walks a directory, registering watches and ingesting any
// session files already present.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[source] walk %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				log.Printf("[source] watch %s: %v", path, err)
			}
			return nil
		}
		if isSessionLog(path) {
			if err := w.ingester.IngestFile(path); err != nil {
				log.Printf("[source] ingest %s: %v", filepath.Base(path), err)
			}
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Printf("[source] watch %s: %v", event.Name, err)
			}
			return
		}
		if isSessionLog(event.Name) {
			w.scheduleIngest(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		if isSessionLog(event.Name) {
			w.scheduleIngest(event.Name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if isSessionLog(event.Name) {
			w.cancelIngest(event.Name)
			w.ingester.RemoveFile(event.Name)
		}
	}
}

// scheduleIngest arms or resets the per-file debounce timer.
func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(debounceDelay)
		return
	}
	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if err := w.ingester.IngestFile(path); err != nil {
			log.Printf("[source] ingest %s: %v", filepath.Base(path), err)
		}
	})
}

func (w *Watcher) cancelIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func isSessionLog(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}
