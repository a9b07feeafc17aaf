package langhandlers

import (
	"regexp"
	"strings"
)

type pythonHandler struct{}

func (pythonHandler) LanguageName() string { return "python" }

var pyDefRegex = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)\s*\(`)

// ParseFunctions ends a function at the first subsequent non-blank
// line whose indentation is <= the def line's own indentation,
// matching Python's indentation-delimited block structure (no braces
// to balance, unlike cppHandler/goHandler).
func (pythonHandler) ParseFunctions(source string) []FunctionSpan {
	lines := strings.Split(source, "\n")
	var spans []FunctionSpan

	for i := 0; i < len(lines); i++ {
		m := pyDefRegex.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		indent := len(m[1])
		name := m[2]
		start := i + 1
		end := start

		j := i + 1
		for ; j < len(lines); j++ {
			trimmed := strings.TrimRight(lines[j], " \t\r")
			if strings.TrimSpace(trimmed) == "" {
				continue
			}
			lineIndent := len(lines[j]) - len(strings.TrimLeft(lines[j], " \t"))
			if lineIndent <= indent {
				break
			}
			end = j + 1
		}

		spans = append(spans, FunctionSpan{Name: name, StartLine: start, EndLine: end})
	}

	return spans
}
