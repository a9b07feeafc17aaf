package projectctx

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreSet is a minimal .gitignore-pattern matcher: exact path and
// basename glob matching, sufficient for excluding the usual build/VCS
// noise from the compact tree (§11 original's use_gitignore flag).
type IgnoreSet struct {
	patterns []string
}

var defaultIgnorePatterns = []string{
	".git", ".jrdev", "node_modules", "vendor", "__pycache__",
	"*.pyc", ".DS_Store", "dist", "build", ".venv",
}

// LoadIgnoreSet reads .gitignore from root (if present) and merges it
// with a baseline set of always-ignored directories.
func LoadIgnoreSet(root string) *IgnoreSet {
	set := &IgnoreSet{patterns: append([]string(nil), defaultIgnorePatterns...)}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return set
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set.patterns = append(set.patterns, strings.TrimSuffix(line, "/"))
	}
	return set
}

// Match reports whether rel (relative path from root) should be excluded.
func (s *IgnoreSet) Match(rel string, isDir bool) bool {
	base := filepath.Base(rel)
	for _, p := range s.patterns {
		if p == base || p == rel {
			return true
		}
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
		if strings.HasPrefix(rel, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
