package threadstore

import "testing"

func TestCreateGetCurrentThread(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	id, err := s.CreateThread("")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	cur, err := s.GetCurrentThread()
	if err != nil {
		t.Fatalf("GetCurrentThread: %v", err)
	}
	if cur.ID != id {
		t.Fatalf("current thread id = %q, want %q", cur.ID, id)
	}
}

func TestRenameRejectsCollision(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	a, _ := s.CreateThread("")
	_, _ = s.CreateThread("existing-id")
	if err := s.RenameThread(a, "existing-id"); err == nil {
		t.Fatal("expected rename collision error")
	}
}

func TestRenameRejectsInvalidName(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	a, _ := s.CreateThread("")
	if err := s.RenameThread(a, "no"); err == nil {
		t.Fatal("expected rename validation error for too-short name")
	}
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir)
	id, _ := s.CreateThread("roundtrip")
	th, _ := s.GetThread(id)
	th.StageFile("x.go")
	th.CommitSend(nil)
	if err := s.Save(th); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reload NewStore: %v", err)
	}
	th2, ok := s2.GetThread(id)
	if !ok {
		t.Fatal("reloaded store missing thread")
	}
	found := false
	for _, p := range th2.EmbeddedPaths() {
		if p == "x.go" {
			found = true
		}
	}
	if !found {
		t.Fatal("reloaded thread missing embedded file")
	}
}
