package langhandlers

import (
	"regexp"
	"strings"
)

// braceSpans scans source with sigRegex (whose first two capture
// groups are class/nil and function name) and tracks brace balance
// from the signature line to locate each function's end, matching
// original_source/src/jrdev/cpp.py's parse_cpp_functions algorithm.
func braceSpans(source string, sigRegex *regexp.Regexp) []FunctionSpan {
	lines := strings.Split(source, "\n")
	var spans []FunctionSpan

	for i := 0; i < len(lines); i++ {
		m := sigRegex.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		class := m[1]
		name := m[2]
		start := i + 1 // 1-indexed
		braceCount := strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		end := start

		j := i
		for braceCount > 0 && j < len(lines)-1 {
			j++
			braceCount += strings.Count(lines[j], "{")
			braceCount -= strings.Count(lines[j], "}")
			end = j + 1
		}

		spans = append(spans, FunctionSpan{Class: class, Name: name, StartLine: start, EndLine: end})
		i = j
	}

	return spans
}

type cppHandler struct{}

func (cppHandler) LanguageName() string { return "cpp" }

var cppFuncRegex = regexp.MustCompile(`^\s*(?:[\w:&*<>\s]*[\s&*])?(?:(\w+)::)?(\w+)\s*\([^)]*\)\s*\{`)

func (cppHandler) ParseFunctions(source string) []FunctionSpan {
	return braceSpans(source, cppFuncRegex)
}

type goHandler struct{}

func (goHandler) LanguageName() string { return "go" }

var goFuncRegex = regexp.MustCompile(`^func\s*(?:\(\s*\w+\s+\*?(\w+)\s*\))?\s*(\w+)\s*\(`)

func (goHandler) ParseFunctions(source string) []FunctionSpan {
	return braceSpans(source, goFuncRegex)
}

type tsjsHandler struct{}

func (tsjsHandler) LanguageName() string { return "typescript" }

var tsjsFuncRegex = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*()(\w+)\s*\(`)

func (tsjsHandler) ParseFunctions(source string) []FunctionSpan {
	return braceSpans(source, tsjsFuncRegex)
}
