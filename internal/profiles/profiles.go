// Package profiles implements ProfileManager (part of C9): named model
// roles ("advanced", "intermediate", "quick", ...), a default profile,
// and the chat model, with first-run provider-preference selection.
package profiles

import (
	"fmt"
	"sync"

	"github.com/presstab/jrdev/internal/models"
	"github.com/presstab/jrdev/internal/providers"
)

// ProviderPreferenceOrder is the first-run provider-preference order
// from spec.md §4.7.
var ProviderPreferenceOrder = []string{"openrouter", "openai", "anthropic", "venice", "deepseek"}

// hardcodedFallback is used when no provider from ProviderPreferenceOrder
// is active and no user profile file exists.
var hardcodedFallback = map[string]string{
	"chat_model":   "claude-sonnet-4-5-20250929",
	"advanced":     "claude-opus-4-1-20250805",
	"intermediate": "claude-sonnet-4-5-20250929",
	"quick":        "claude-3-5-haiku-20241022",
}

// Manager holds {profiles: {role: model_name}, default_profile, chat_model}.
type Manager struct {
	mu             sync.RWMutex
	profiles       map[string]string
	defaultProfile string
	chatModel      string
	modelList      *models.List
}

// LoadOrSelect implements first-run selection (§4.7): if saved is
// non-nil (a user profiles file existed), use it verbatim. Otherwise
// walk ProviderPreferenceOrder and copy the DefaultProfiles of the
// first active provider; if none are active, fall back to the
// hardcoded defaults.
func LoadOrSelect(saved map[string]string, registry *providers.Registry, modelList *models.List) *Manager {
	m := &Manager{modelList: modelList}

	if saved != nil {
		m.profiles = saved
		m.chatModel = saved["chat_model"]
		m.defaultProfile = "chat_model"
		return m
	}

	for _, name := range ProviderPreferenceOrder {
		if !registry.Active(name) {
			continue
		}
		spec, _ := registry.Spec(name)
		if len(spec.DefaultProfiles) > 0 {
			m.profiles = cloneMap(spec.DefaultProfiles)
			m.chatModel = spec.DefaultProfiles["chat_model"]
			m.defaultProfile = "chat_model"
			return m
		}
	}

	m.profiles = cloneMap(hardcodedFallback)
	m.chatModel = hardcodedFallback["chat_model"]
	m.defaultProfile = "chat_model"
	return m
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ModelFor returns the model assigned to a role.
func (m *Manager) ModelFor(role string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.profiles[role]
	return v, ok
}

// ChatModel returns the chat model.
func (m *Manager) ChatModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chatModel
}

// SetProfile validates the model exists in the model list (or is
// already used by another profile) before persisting (§4.7).
func (m *Manager) SetProfile(role, model string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	valid := m.modelList != nil && m.modelList.Exists(model)
	if !valid {
		for _, existing := range m.profiles {
			if existing == model {
				valid = true
				break
			}
		}
	}
	if !valid {
		return fmt.Errorf("model %q does not exist and is not used by any profile", model)
	}

	if m.profiles == nil {
		m.profiles = make(map[string]string)
	}
	m.profiles[role] = model
	if role == "chat_model" {
		m.chatModel = model
	}
	return nil
}

// Snapshot returns a copy of the current profile map, for persistence.
func (m *Manager) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMap(m.profiles)
}

// DefaultProfile returns the role chat commands fall back to absent
// an explicit model override.
func (m *Manager) DefaultProfile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultProfile
}
