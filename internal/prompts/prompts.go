// Package prompts implements the prompt library (C1): named prompt
// templates loaded from disk with slot substitution, reloaded live
// when the source directory changes. Grounded on the fsnotify-backed
// template registry idiom used by the pack's template/config watchers.
package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Library holds every loaded named prompt, keyed by its path relative
// to the library directory, without extension (e.g. "create_steps",
// "operations/add").
type Library struct {
	mu      sync.RWMutex
	dir     string
	prompts map[string]string
	watcher *fsnotify.Watcher
}

// NewLibrary loads every *.md/*.txt file under dir as a named prompt.
func NewLibrary(dir string) (*Library, error) {
	l := &Library{dir: dir, prompts: make(map[string]string)}
	if err := l.loadAll(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) loadAll() error {
	loaded := make(map[string]string)
	err := filepath.Walk(l.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		rel, relErr := filepath.Rel(l.dir, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		key := strings.TrimSuffix(rel, ext)
		key = filepath.ToSlash(key)

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		loaded[key] = string(data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("prompts: load %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.prompts = loaded
	l.mu.Unlock()
	return nil
}

// Load returns the raw template text for a named prompt key
// (loadSystemPrompt(key), §4.3).
func (l *Library) Load(key string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	text, ok := l.prompts[key]
	if !ok {
		return "", fmt.Errorf("prompts: no prompt named %q", key)
	}
	return text, nil
}

// Render loads a named prompt and substitutes {{slot}} placeholders
// from slots.
func (l *Library) Render(key string, slots map[string]string) (string, error) {
	text, err := l.Load(key)
	if err != nil {
		return "", err
	}
	for k, v := range slots {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text, nil
}

// Watch starts an fsnotify watch over the top-level prompt directory,
// reloading the whole library on a write, create, remove or rename
// there; subdirectories such as operations/ are not watched.
func (l *Library) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompts: start watcher: %w", err)
	}
	l.watcher = w
	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("prompts: watch %s: %w", l.dir, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := l.loadAll(); err != nil {
						slog.Warn("prompts: reload failed", "error", err)
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}

// Close stops the watch, if running.
func (l *Library) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
