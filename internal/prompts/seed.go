package prompts

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/*.md templates/operations/*.md
var templateFS embed.FS

// SeedDefaults writes every embedded default prompt into dir, without
// overwriting a file a user has already customized (§6 file layout).
func SeedDefaults(dir string) ([]string, error) {
	var written []string

	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel("templates", path)
		if relErr != nil {
			return relErr
		}
		dest := filepath.Join(dir, rel)

		if _, statErr := os.Stat(dest); statErr == nil {
			return nil // don't overwrite a customized prompt
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		content, err := templateFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return err
		}
		written = append(written, dest)
		return nil
	})

	return written, err
}
