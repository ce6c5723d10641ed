// SPDX-License-Identifier: MIT

// Package watcher turns filesystem activity under the working tree into
// batched refresh requests. Events within a debounce window are coalesced
// so a bulk save of many assets produces a single refresh.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier receives the coalesced batch of changed paths, relative to
// the watcher root.
type Notifier func(paths []string)

// Watcher monitors a set of directory roots under a repository and
// reports changes to files matched by the filter.
type Watcher struct {
	root     string
	roots    []string
	debounce time.Duration
	filter   func(string) bool
	notify   Notifier

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	fsw     *fsnotify.Watcher
	closed  bool
}

// New builds a Watcher rooted at the repository directory. roots are
// subdirectories to observe; empty means the root itself. filter limits
// which changed paths are reported; nil reports everything.
func New(root string, roots []string, debounce time.Duration, filter func(string) bool, notify Notifier) (*Watcher, error) {
	if notify == nil {
		return nil, fmt.Errorf("watcher requires a notifier")
	}
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		root:     filepath.Clean(root),
		roots:    roots,
		debounce: debounce,
		filter:   filter,
		notify:   notify,
		pending:  make(map[string]struct{}),
		fsw:      fsw,
	}, nil
}

// Start registers the watch roots recursively and runs the event loop
// until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, r := range w.roots {
		dir := filepath.Join(w.root, filepath.FromSlash(r))
		if err := w.addRecursive(dir); err != nil {
			return err
		}
	}
	go w.loop(ctx)
	return nil
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	// A directory created mid-run needs its own watch or events inside
	// it are lost.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if !w.closed {
				_ = w.addRecursive(event.Name)
			}
			w.mu.Unlock()
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "..") || !w.filter(rel) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[rel] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	w.notify(batch)
}
