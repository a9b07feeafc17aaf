package prompts

import (
	"os"
	"path/filepath"
	"testing"
)

func seededDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	return dir
}

func TestSeedDefaultsWritesExpectedKeys(t *testing.T) {
	dir := seededDir(t)
	for _, name := range []string{"create_steps.md", "validation.md", filepath.Join("operations", "add.md")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to be seeded: %v", name, err)
		}
	}
}

func TestSeedDefaultsDoesNotOverwriteCustomization(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "validation.md"), []byte("custom"), 0o644)
	if _, err := SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "validation.md"))
	if string(data) != "custom" {
		t.Fatalf("seeding overwrote a customized prompt: %q", data)
	}
}

func TestLoadAndRender(t *testing.T) {
	dir := seededDir(t)
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	text, err := lib.Load("validation")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty validation prompt")
	}
}

func TestLoadOperationsSubdirKey(t *testing.T) {
	dir := seededDir(t)
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if _, err := lib.Load("operations/add"); err != nil {
		t.Fatalf("Load(operations/add): %v", err)
	}
}

func TestLoadUnknownKeyErrors(t *testing.T) {
	dir := seededDir(t)
	lib, _ := NewLibrary(dir)
	if _, err := lib.Load("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown prompt key")
	}
}
