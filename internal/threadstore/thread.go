// Package threadstore implements the Thread type and per-thread file
// persistence (C10): ordered message history, staged/embedded file
// context sets, and kernel-level create/switch/get operations, each
// thread serialized to its own JSON file on disk.
package threadstore

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/presstab/jrdev/internal/providers"
)

// nameRegex is the Thread human-name constraint (§3): 3-20 chars of
// [A-Za-z0-9_-].
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// Usage is per-thread accumulated token counters.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Metadata holds thread timestamps.
type Metadata struct {
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Thread is a persistent conversation unit (§3 GLOSSARY).
type Thread struct {
	mu sync.Mutex

	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Messages []providers.Message `json:"messages"`

	// StagedContext holds file paths queued for the next send; Embedded
	// holds files already folded into a prior message. A path is in
	// exactly one of these sets at any time (§3 invariant).
	StagedContext map[string]bool `json:"staged_context"`
	Embedded      map[string]bool `json:"embedded_files"`

	Usage    Usage    `json:"usage"`
	Metadata Metadata `json:"metadata"`
}

// NewThread constructs an empty thread with the given id.
func NewThread(id string) *Thread {
	now := time.Now()
	return &Thread{
		ID:            id,
		StagedContext: make(map[string]bool),
		Embedded:      make(map[string]bool),
		Metadata:      Metadata{CreatedAt: now, LastModified: now},
	}
}

// AppendMessage appends a message. Messages are append-only except for
// the last assistant message (§3 invariant), mutated via
// AppendToLastAssistant/FinalizeLastAssistant instead of this method.
func (t *Thread) AppendMessage(m providers.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, m)
	t.Metadata.LastModified = time.Now()
}

// AppendToLastAssistant appends a partial chunk to the last assistant
// message, starting a new one if the last message isn't an in-progress
// assistant turn.
func (t *Thread) AppendToLastAssistant(chunk string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.Messages)
	if n == 0 || t.Messages[n-1].Role != providers.RoleAssistant {
		t.Messages = append(t.Messages, providers.Message{Role: providers.RoleAssistant, Content: chunk})
	} else {
		t.Messages[n-1].Content += chunk
	}
	t.Metadata.LastModified = time.Now()
}

// FinalizeLastAssistant replaces the last assistant message's content
// with a full final string, ending the partial-append phase.
func (t *Thread) FinalizeLastAssistant(full string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.Messages)
	if n > 0 && t.Messages[n-1].Role == providers.RoleAssistant {
		t.Messages[n-1].Content = full
	} else {
		t.Messages = append(t.Messages, providers.Message{Role: providers.RoleAssistant, Content: full})
	}
	t.Metadata.LastModified = time.Now()
}

// History returns a copy of the message list.
func (t *Thread) History() []providers.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]providers.Message, len(t.Messages))
	copy(out, t.Messages)
	return out
}

// StageFile queues a path for the next send. Fails if already embedded
// (a path is in exactly one of {staged, embedded} at a time).
func (t *Thread) StageFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Embedded[path] {
		return fmt.Errorf("%q is already embedded, cannot stage", path)
	}
	t.StagedContext[path] = true
	return nil
}

// UnstageFile removes path from the staged set.
func (t *Thread) UnstageFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.StagedContext, path)
}

// ClearMessages empties the message history, leaving context sets and
// usage counters untouched (/clearmessages, distinct from /clearcontext).
func (t *Thread) ClearMessages() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = nil
	t.Metadata.LastModified = time.Now()
}

// ClearContext empties both the staged and embedded sets.
func (t *Thread) ClearContext() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.StagedContext = make(map[string]bool)
	t.Embedded = make(map[string]bool)
}

// StagedPaths returns the current staged file set as a slice.
func (t *Thread) StagedPaths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.StagedContext))
	for p := range t.StagedContext {
		out = append(out, p)
	}
	return out
}

// EmbeddedPaths returns the current embedded file set as a slice.
func (t *Thread) EmbeddedPaths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.Embedded))
	for p := range t.Embedded {
		out = append(out, p)
	}
	return out
}

// CommitSend unions the staged set into embedded and empties staged,
// called after a successful send (§3 invariant, §8 property 1).
func (t *Thread) CommitSend(additionallyEmbedded []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p := range t.StagedContext {
		t.Embedded[p] = true
	}
	for _, p := range additionallyEmbedded {
		t.Embedded[p] = true
	}
	t.StagedContext = make(map[string]bool)
	t.Metadata.LastModified = time.Now()
}

// AddUsage accumulates token counters for this thread.
func (t *Thread) AddUsage(input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Usage.InputTokens += input
	t.Usage.OutputTokens += output
}

// ValidateName enforces the thread human-name constraint.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("thread name %q must be 3-20 characters of [A-Za-z0-9_-]", name)
	}
	return nil
}

// snapshot is the on-disk JSON shape: a Thread copy without its mutex.
type snapshot struct {
	ID            string               `json:"id"`
	Name          string               `json:"name,omitempty"`
	Messages      []providers.Message  `json:"messages"`
	StagedContext map[string]bool      `json:"staged_context"`
	Embedded      map[string]bool      `json:"embedded_files"`
	Usage         Usage                `json:"usage"`
	Metadata      Metadata             `json:"metadata"`
}

func (t *Thread) toSnapshot() snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return snapshot{
		ID:            t.ID,
		Name:          t.Name,
		Messages:      append([]providers.Message(nil), t.Messages...),
		StagedContext: t.StagedContext,
		Embedded:      t.Embedded,
		Usage:         t.Usage,
		Metadata:      t.Metadata,
	}
}

func fromSnapshot(s snapshot) *Thread {
	if s.StagedContext == nil {
		s.StagedContext = make(map[string]bool)
	}
	if s.Embedded == nil {
		s.Embedded = make(map[string]bool)
	}
	return &Thread{
		ID:            s.ID,
		Name:          s.Name,
		Messages:      s.Messages,
		StagedContext: s.StagedContext,
		Embedded:      s.Embedded,
		Usage:         s.Usage,
		Metadata:      s.Metadata,
	}
}
