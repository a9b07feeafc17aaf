package threadstore

import (
	"testing"

	"github.com/presstab/jrdev/internal/providers"
)

func TestStageThenEmbedInvariant(t *testing.T) {
	th := NewThread("t1")
	if err := th.StageFile("a.go"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	th.CommitSend(nil)
	if len(th.StagedPaths()) != 0 {
		t.Fatal("staged set should be empty after commit")
	}
	found := false
	for _, p := range th.EmbeddedPaths() {
		if p == "a.go" {
			found = true
		}
	}
	if !found {
		t.Fatal("a.go should be embedded after commit")
	}
}

func TestStageFileRejectsAlreadyEmbedded(t *testing.T) {
	th := NewThread("t1")
	th.StageFile("a.go")
	th.CommitSend(nil)
	if err := th.StageFile("a.go"); err == nil {
		t.Fatal("expected error staging an already-embedded file")
	}
}

func TestAppendAndFinalizeLastAssistant(t *testing.T) {
	th := NewThread("t1")
	th.AppendMessage(providers.Message{Role: providers.RoleUser, Content: "hi"})
	th.AppendToLastAssistant("Hel")
	th.AppendToLastAssistant("lo")
	hist := th.History()
	if hist[len(hist)-1].Content != "Hello" {
		t.Fatalf("partial appends = %q, want Hello", hist[len(hist)-1].Content)
	}
	th.FinalizeLastAssistant("Hello, world")
	hist = th.History()
	if hist[len(hist)-1].Content != "Hello, world" {
		t.Fatalf("finalized content = %q", hist[len(hist)-1].Content)
	}
}

func TestValidateName(t *testing.T) {
	cases := map[string]bool{
		"ab":                  false, // too short
		"abc":                 true,
		"valid_name-1":        true,
		"has spaces":          false,
		"way-too-long-name-for-sure": false,
	}
	for name, want := range cases {
		err := ValidateName(name)
		if (err == nil) != want {
			t.Errorf("ValidateName(%q) valid = %v, want %v", name, err == nil, want)
		}
	}
}
