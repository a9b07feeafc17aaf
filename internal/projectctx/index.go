package projectctx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IndexEntry is one path's record in the JSON index: content hash,
// the summary file it produced, and when it was last indexed.
type IndexEntry struct {
	SourceHash    string    `json:"source_hash"`
	SummaryPath   string    `json:"summary_path"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

// Index owns the three on-disk artifacts (compact tree, overview,
// conventions) plus the per-file summary index (C11).
type Index struct {
	mu   sync.RWMutex
	root string // project root
	dir  string // <project>/.jrdev/contexts
	data map[string]IndexEntry

	watcher *fsnotify.Watcher
	dirty   map[string]bool
}

// NewIndex loads (or initializes) the index file under
// <project>/.jrdev/contexts/file_index.json.
func NewIndex(root string) (*Index, error) {
	dir := filepath.Join(root, ".jrdev", "contexts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("projectctx: create contexts dir: %w", err)
	}

	idx := &Index{
		root: root,
		dir:  dir,
		data: make(map[string]IndexEntry),
		dirty: make(map[string]bool),
	}

	indexPath := filepath.Join(dir, "file_index.json")
	if raw, err := os.ReadFile(indexPath); err == nil {
		_ = json.Unmarshal(raw, &idx.data)
	}

	return idx, nil
}

// HashFile computes the SHA-256 of a file's bytes (§9 Open Question
// decision: file-index hash algorithm).
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("projectctx: read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GetFilePaths returns every path currently tracked in the index.
func (idx *Index) GetFilePaths() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.data))
	for p := range idx.data {
		out = append(out, p)
	}
	return out
}

// GetOutdatedFiles returns tracked paths whose on-disk content hash no
// longer matches the indexed hash.
func (idx *Index) GetOutdatedFiles() ([]string, error) {
	idx.mu.RLock()
	snapshot := make(map[string]IndexEntry, len(idx.data))
	for k, v := range idx.data {
		snapshot[k] = v
	}
	idx.mu.RUnlock()

	var outdated []string
	for rel, entry := range snapshot {
		full := filepath.Join(idx.root, rel)
		hash, err := HashFile(full)
		if err != nil {
			outdated = append(outdated, rel) // missing/unreadable counts as outdated
			continue
		}
		if hash != entry.SourceHash {
			outdated = append(outdated, rel)
		}
	}
	return outdated, nil
}

// RecordSummary updates the index entry for path after a successful
// LLM summarization (generate_context).
func (idx *Index) RecordSummary(path, summaryPath string) error {
	hash, err := HashFile(filepath.Join(idx.root, path))
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.data[path] = IndexEntry{
		SourceHash:    hash,
		SummaryPath:   summaryPath,
		LastIndexedAt: time.Now(),
	}
	idx.mu.Unlock()
	return idx.persist()
}

func (idx *Index) persist() error {
	idx.mu.RLock()
	data, err := json.MarshalIndent(idx.data, "", "  ")
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("projectctx: marshal index: %w", err)
	}
	return os.WriteFile(filepath.Join(idx.dir, "file_index.json"), data, 0o644)
}

// WatchStaleness starts an fsnotify watch over root's directories
// (skipping the top-level .git and .jrdev), recording written or
// created files in a dirty set. GetOutdatedFiles does not consult that
// set; it re-hashes every tracked file on each call.
func (idx *Index) WatchStaleness(root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("projectctx: start watcher: %w", err)
	}
	idx.watcher = w

	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel == ".git" || rel == ".jrdev" {
			return filepath.SkipDir
		}
		return w.Add(path)
	}); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					rel, err := filepath.Rel(root, ev.Name)
					if err == nil {
						idx.mu.Lock()
						idx.dirty[rel] = true
						idx.mu.Unlock()
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

// Close stops the fsnotify watch, if running.
func (idx *Index) Close() error {
	if idx.watcher != nil {
		return idx.watcher.Close()
	}
	return nil
}
