package profiles

import (
	"testing"

	"github.com/presstab/jrdev/internal/models"
	"github.com/presstab/jrdev/internal/providers"
)

func emptyRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	r, err := providers.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestLoadOrSelectUsesSavedProfile(t *testing.T) {
	saved := map[string]string{"chat_model": "gpt-4o"}
	m := LoadOrSelect(saved, emptyRegistry(t), nil)
	if m.ChatModel() != "gpt-4o" {
		t.Fatalf("ChatModel() = %q, want gpt-4o", m.ChatModel())
	}
}

func TestLoadOrSelectFallsBackHardcoded(t *testing.T) {
	m := LoadOrSelect(nil, emptyRegistry(t), nil)
	if m.ChatModel() == "" {
		t.Fatal("expected a non-empty hardcoded fallback chat model")
	}
}

func TestSetProfileRejectsUnknownModel(t *testing.T) {
	list := models.NewList(nil, nil, models.DefaultModels())
	m := LoadOrSelect(map[string]string{"chat_model": "claude-sonnet-4-5-20250929"}, emptyRegistry(t), list)
	if err := m.SetProfile("quick", "not-a-real-model"); err == nil {
		t.Fatal("expected error setting unknown model")
	}
}

func TestSetProfileAllowsModelAlreadyInUse(t *testing.T) {
	m := LoadOrSelect(map[string]string{"chat_model": "claude-sonnet-4-5-20250929"}, emptyRegistry(t), nil)
	if err := m.SetProfile("quick", "claude-sonnet-4-5-20250929"); err != nil {
		t.Fatalf("expected profile reuse to be allowed: %v", err)
	}
}
