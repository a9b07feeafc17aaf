package threadstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Store owns every thread for a project, persisting each to its own
// file under <project>/.jrdev/threads/<id>.json (§6). Multiple threads
// may be read concurrently but writes to one thread are serialized via
// per-thread locks (§5), and the active-thread swap is serialized by
// the store's own mutex.
type Store struct {
	mu        sync.RWMutex
	dir       string
	threads   map[string]*Thread
	writeLock map[string]*sync.Mutex
	currentID string
}

// NewStore loads every *.json thread file under dir.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		threads:   make(map[string]*Thread),
		writeLock: make(map[string]*sync.Mutex),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("threadstore: create dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("threadstore: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		th := fromSnapshot(snap)
		s.threads[th.ID] = th
		s.writeLock[th.ID] = &sync.Mutex{}
	}

	return s, nil
}

// CreateThread creates a new thread, using id if given or a fresh UUID
// otherwise, and returns its id.
func (s *Store) CreateThread(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.threads[id]; exists {
		return "", fmt.Errorf("thread %q already exists", id)
	}

	th := NewThread(id)
	s.threads[id] = th
	s.writeLock[id] = &sync.Mutex{}
	if s.currentID == "" {
		s.currentID = id
	}

	if err := s.save(th); err != nil {
		return "", err
	}
	return id, nil
}

// SwitchThread makes id the active thread.
func (s *Store) SwitchThread(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return fmt.Errorf("thread %q not found", id)
	}
	s.currentID = id
	return nil
}

// GetThread returns a thread by id.
func (s *Store) GetThread(id string) (*Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[id]
	return th, ok
}

// GetCurrentThread returns the active thread, creating a default one
// if none exists yet.
func (s *Store) GetCurrentThread() (*Thread, error) {
	s.mu.RLock()
	cur := s.currentID
	s.mu.RUnlock()
	if cur == "" {
		id, err := s.CreateThread("")
		if err != nil {
			return nil, err
		}
		cur = id
	}
	th, ok := s.GetThread(cur)
	if !ok {
		return nil, fmt.Errorf("threadstore: active thread %q missing", cur)
	}
	return th, nil
}

// ListThreads returns every known thread id.
func (s *Store) ListThreads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.threads))
	for id := range s.threads {
		out = append(out, id)
	}
	return out
}

// RenameThread enforces the name regex and prevents collisions with
// existing thread ids (§4.8).
func (s *Store) RenameThread(id, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}

	s.mu.Lock()
	th, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("thread %q not found", id)
	}
	for existingID := range s.threads {
		if existingID == newName && existingID != id {
			s.mu.Unlock()
			return fmt.Errorf("a thread with id %q already exists", newName)
		}
	}
	lock := s.writeLock[id]
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	th.mu.Lock()
	th.Name = newName
	th.mu.Unlock()

	return s.save(th)
}

// Save persists a thread's current state, serialized per thread.
func (s *Store) Save(th *Thread) error {
	s.mu.RLock()
	lock := s.writeLock[th.ID]
	s.mu.RUnlock()
	if lock == nil {
		lock = &sync.Mutex{}
		s.mu.Lock()
		s.writeLock[th.ID] = lock
		s.mu.Unlock()
	}
	lock.Lock()
	defer lock.Unlock()
	return s.save(th)
}

func (s *Store) save(th *Thread) error {
	data, err := json.MarshalIndent(th.toSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("threadstore: marshal: %w", err)
	}
	path := filepath.Join(s.dir, th.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("threadstore: write: %w", err)
	}
	return os.Rename(tmp, path)
}
