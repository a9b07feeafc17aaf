package models

import "testing"

func TestNewListReconcilesDefaults(t *testing.T) {
	user := []ModelEntry{{Name: "custom-model", Provider: "openai"}}
	defaults := []ModelEntry{
		{Name: "gpt-4o", Provider: "openai", InputCost: 1},
		{Name: "gpt-4o-mini", Provider: "openai", InputCost: 2},
	}
	l := NewList(user, nil, defaults)

	if !l.Exists("custom-model") {
		t.Fatal("user model should survive reconciliation")
	}
	if !l.Exists("gpt-4o") || !l.Exists("gpt-4o-mini") {
		t.Fatal("missing defaults should be added")
	}
}

func TestNewListIgnoredNotReintroduced(t *testing.T) {
	defaults := []ModelEntry{{Name: "gpt-4o"}}
	l := NewList(nil, []string{"gpt-4o"}, defaults)
	if l.Exists("gpt-4o") {
		t.Fatal("ignored default should not be reintroduced")
	}
}

func TestNewListUpdatesExistingToMatchDefault(t *testing.T) {
	user := []ModelEntry{{Name: "gpt-4o", InputCost: 999}}
	defaults := []ModelEntry{{Name: "gpt-4o", InputCost: 1}}
	l := NewList(user, nil, defaults)
	e, _ := l.Get("gpt-4o")
	if e.InputCost != 1 {
		t.Fatalf("InputCost = %d, want 1 (updated to match default)", e.InputCost)
	}
}

func TestAddDuplicateFails(t *testing.T) {
	l := NewList(nil, nil, nil)
	if err := l.Add(ModelEntry{Name: "a"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := l.Add(ModelEntry{Name: "a"}); err == nil {
		t.Fatal("expected error adding duplicate name")
	}
}

func TestRemoveRecordsIgnored(t *testing.T) {
	l := NewList([]ModelEntry{{Name: "a"}}, nil, nil)
	if err := l.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if l.Exists("a") {
		t.Fatal("removed model should no longer exist")
	}
	found := false
	for _, n := range l.IgnoredNames() {
		if n == "a" {
			found = true
		}
	}
	if !found {
		t.Fatal("removed model should be recorded in ignored set")
	}
}

func TestEditUnknownFails(t *testing.T) {
	l := NewList(nil, nil, nil)
	if err := l.Edit("missing", ModelEntry{}); err == nil {
		t.Fatal("expected error editing unknown model")
	}
}
