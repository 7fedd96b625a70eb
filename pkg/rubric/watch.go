package rubric

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Holder serves the current rubric to concurrent readers.
type Holder struct {
	cur  atomic.Pointer[Rubric]
	path string
}

// NewHolder starts with r, or Default() when r is nil.
func NewHolder(r *Rubric) *Holder {
	if r == nil {
		r = Default()
	}
	h := &Holder{}
	h.cur.Store(r)
	return h
}

// Open loads path into a new holder. An empty path uses the defaults.
func Open(path string) (*Holder, error) {
	if path == "" {
		return NewHolder(nil), nil
	}
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	h := NewHolder(r)
	h.path = path
	return h, nil
}

// Current returns the active rubric. Callers must not mutate it.
func (h *Holder) Current() *Rubric {
	return h.cur.Load()
}

// Swap replaces the active rubric.
func (h *Holder) Swap(r *Rubric) {
	h.cur.Store(r)
}

// Reload re-reads the holder's file. On error the previous table stays.
func (h *Holder) Reload() error {
	if h.path == "" {
		return nil
	}
	r, err := Load(h.path)
	if err != nil {
		return err
	}
	h.cur.Store(r)
	return nil
}

// Watch reloads the rubric whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up too.
func (h *Holder) Watch(ctx context.Context, logger *slog.Logger) error {
	if h.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rubric watcher: %w", err)
	}
	dir := filepath.Dir(h.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(h.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := h.Reload(); err != nil {
					logger.Warn("rubric reload failed, keeping previous table", "path", h.path, "error", err)
					continue
				}
				logger.Info("rubric reloaded", "path", h.path, "version", h.Current().Version)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("rubric watcher error", "error", err)
			}
		}
	}()
	return nil
}
