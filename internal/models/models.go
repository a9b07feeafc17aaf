// Package models implements the thread-safe model list (C9): a
// catalogue of ModelEntry records reconciled against hardcoded
// defaults on startup, with add/remove/edit operations and an ignored
// set so removed defaults aren't silently re-added.
package models

import (
	"fmt"
	"sync"
)

// ModelEntry mirrors spec.md §3's GLOSSARY entry. Costs are integer
// units of 1/10,000,000 tokens in currency base (§4.6/§4.7 invariant 7).
type ModelEntry struct {
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	IsThink      bool   `json:"is_think"`
	InputCost    int    `json:"input_cost"`
	OutputCost   int    `json:"output_cost"`
	ContextTokens int   `json:"context_tokens"`
}

// List is the thread-safe model catalogue.
type List struct {
	mu      sync.RWMutex
	models  []ModelEntry
	ignored map[string]bool
}

// NewList reconciles a user-saved list against hardcoded defaults:
// every default not in ignoredNames is added if missing, and existing
// entries are updated to match the default's properties when they
// differ. The result is deduped by name.
func NewList(userModels []ModelEntry, ignoredNames []string, defaults []ModelEntry) *List {
	l := &List{ignored: make(map[string]bool)}
	for _, n := range ignoredNames {
		l.ignored[n] = true
	}

	byName := make(map[string]int)
	for _, m := range userModels {
		if _, exists := byName[m.Name]; exists {
			continue // dedupe by name
		}
		byName[m.Name] = len(l.models)
		l.models = append(l.models, m)
	}

	for _, d := range defaults {
		if l.ignored[d.Name] {
			continue
		}
		if idx, exists := byName[d.Name]; exists {
			l.models[idx] = d // update properties to match default
			continue
		}
		byName[d.Name] = len(l.models)
		l.models = append(l.models, d)
	}

	return l
}

// List returns a copy of the active model entries.
func (l *List) List() []ModelEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ModelEntry, len(l.models))
	copy(out, l.models)
	return out
}

// Exists reports whether name is present in the active list.
func (l *List) Exists(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Get returns the entry for name.
func (l *List) Get(name string) (ModelEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelEntry{}, false
}

// Add appends a model. Fails if the name is already present (invariant
// in §3: "adding a name already present fails").
func (l *List) Add(m ModelEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.models {
		if existing.Name == m.Name {
			return fmt.Errorf("model %q already exists", m.Name)
		}
	}
	l.models = append(l.models, m)
	delete(l.ignored, m.Name)
	return nil
}

// Remove deletes a model by name and records it in the ignored set so
// startup reconciliation won't re-introduce it from defaults.
func (l *List) Remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.models {
		if m.Name == name {
			l.models = append(l.models[:i], l.models[i+1:]...)
			l.ignored[name] = true
			return nil
		}
	}
	return fmt.Errorf("model %q not found", name)
}

// Edit replaces an existing entry's properties in place.
func (l *List) Edit(name string, updated ModelEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.models {
		if m.Name == name {
			updated.Name = name
			l.models[i] = updated
			return nil
		}
	}
	return fmt.Errorf("model %q not found", name)
}

// IgnoredNames returns the set of names excluded from default reconciliation.
func (l *List) IgnoredNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.ignored))
	for n := range l.ignored {
		out = append(out, n)
	}
	return out
}
