// Package kernel wires C4-C15 together into the running process (C16):
// the provider registry, model list, profile manager, project index,
// thread store, prompt library, usage tracker, task monitor, and the
// router/codeagent/research agents, behind a single command-dispatch
// entrypoint the CLI and REPL both call into. Grounded on the
// teacher's cmd/root.go (cobra root + subcommand registration) and
// cmd/agent_chat_standalone.go (bootstrap-then-REPL wiring idiom).
package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"

	"github.com/presstab/jrdev/internal/models"
)

// userModelConfig is ~/.jrdev/user_model_config.json: user-added
// models plus the set of hardcoded defaults the user has removed
// (§6 file formats).
type userModelConfig struct {
	Models  []models.ModelEntry `json:"models"`
	Ignored []string            `json:"ignored"`
}

// modelProfiles is ~/.jrdev/model_profiles.json (§6).
type modelProfiles struct {
	Profiles       map[string]string `json:"profiles"`
	DefaultProfile string            `json:"default_profile"`
	ChatModel      string            `json:"chat_model"`
}

// gitConfig is <project>/.jrdev/git_config.json (§6).
type gitConfig struct {
	BaseBranch string `json:"base_branch"`
}

// jrdevHomeDir returns ~/.jrdev, creating it if necessary.
func jrdevHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("kernel: resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".jrdev")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("kernel: create %s: %w", dir, err)
	}
	return dir, nil
}

// loadUserModelConfig reads user_model_config.json with json5
// (tolerating trailing commas and // comments a hand-edited file
// accumulates), returning a zero value if the file doesn't exist yet.
func loadUserModelConfig(homeDir string) (userModelConfig, error) {
	var cfg userModelConfig
	path := filepath.Join(homeDir, "user_model_config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("kernel: read %s: %w", path, err)
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("kernel: parse %s: %w", path, err)
	}
	return cfg, nil
}

func saveUserModelConfig(homeDir string, cfg userModelConfig) error {
	return writeJSON(filepath.Join(homeDir, "user_model_config.json"), cfg)
}

// loadModelProfiles returns (nil, nil) if no saved profile file
// exists yet, letting profiles.LoadOrSelect run first-run selection.
func loadModelProfiles(homeDir string) (*modelProfiles, error) {
	path := filepath.Join(homeDir, "model_profiles.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kernel: read %s: %w", path, err)
	}
	var p modelProfiles
	if err := json5.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("kernel: parse %s: %w", path, err)
	}
	return &p, nil
}

func saveModelProfiles(homeDir string, p modelProfiles) error {
	return writeJSON(filepath.Join(homeDir, "model_profiles.json"), p)
}

func loadGitConfig(projectDir string) gitConfig {
	cfg := gitConfig{BaseBranch: "origin/main"}
	path := filepath.Join(projectDir, ".jrdev", "git_config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = json5.Unmarshal(data, &cfg)
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "origin/main"
	}
	return cfg
}

func saveGitConfig(projectDir string, cfg gitConfig) error {
	dir := filepath.Join(projectDir, ".jrdev")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kernel: create %s: %w", dir, err)
	}
	return writeJSON(filepath.Join(dir, "git_config.json"), cfg)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("kernel: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("kernel: write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
