package fileops

import (
	"fmt"
	"strings"

	"github.com/presstab/jrdev/internal/langhandlers"
)

// resolveInsertLocation turns an InsertLocation into a concrete
// 1-indexed insertion line within lines, using the language handler
// registered for filename's extension. Exactly one location field is
// expected to be set, checked in the same precedence order as the
// original's process_insert_after_changes: after_function,
// within_function, after_marker, global.
func resolveInsertLocation(lines []string, loc *InsertLocation, filename string) (int, error) {
	switch {
	case loc.AfterFunction != "":
		return afterFunctionLine(lines, filename, loc.AfterFunction)
	case loc.WithinFunction != "":
		return withinFunctionLine(lines, filename, loc.WithinFunction, loc.PositionMarker)
	case loc.AfterMarker != "":
		return afterMarkerLine(lines, loc.AfterMarker)
	case loc.Global != "":
		return globalLine(lines, loc.Global, filename)
	default:
		return 0, fmt.Errorf("fileops: insert_location has no recognized field set")
	}
}

// parseSignature splits an optional "Class::name" signature into its
// class and name parts, matching the original's parse_cpp_signature /
// lang_handler.parse_signature. A bare name has an empty class.
func parseSignature(signature string) (class, name string) {
	if idx := strings.Index(signature, "::"); idx >= 0 {
		return signature[:idx], signature[idx+2:]
	}
	return "", signature
}

// findFunctionSpan locates the span matching signature, mirroring
// insert_after_function/insert_within_function's matching loop: an
// exact class+name match wins outright; with no class requested, the
// first class-less span with a matching name wins, falling back to
// any same-name span (regardless of class) if none is class-less.
func findFunctionSpan(spans []langhandlers.FunctionSpan, signature string) (langhandlers.FunctionSpan, bool) {
	requestedClass, requestedName := parseSignature(signature)

	var potential *langhandlers.FunctionSpan
	for _, span := range spans {
		if span.Name != requestedName {
			continue
		}
		switch {
		case requestedClass == "":
			if span.Class == "" {
				return span, true
			}
			if potential == nil {
				s := span
				potential = &s
			}
		case span.Class == "":
			continue
		case span.Class == requestedClass:
			return span, true
		}
	}
	if potential != nil {
		return *potential, true
	}
	return langhandlers.FunctionSpan{}, false
}

func afterFunctionLine(lines []string, filename, funcName string) (int, error) {
	h, ok := langhandlers.ForFile(filename)
	if !ok {
		return 0, fmt.Errorf("fileops: no language handler for %q, cannot resolve after_function", filename)
	}
	source := strings.Join(lines, "")
	span, ok := findFunctionSpan(h.ParseFunctions(source), funcName)
	if !ok {
		return 0, fmt.Errorf("fileops: function %q not found in %q", funcName, filename)
	}
	return span.EndLine + 1, nil
}

func withinFunctionLine(lines []string, filename, funcName, positionMarker string) (int, error) {
	h, ok := langhandlers.ForFile(filename)
	if !ok {
		return 0, fmt.Errorf("fileops: no language handler for %q, cannot resolve within_function", filename)
	}
	source := strings.Join(lines, "")
	target, ok := findFunctionSpan(h.ParseFunctions(source), funcName)
	if !ok {
		return 0, fmt.Errorf("fileops: function %q not found in %q", funcName, filename)
	}

	switch positionMarker {
	case "", "start", "at_start":
		return target.StartLine + 1, nil
	case "end":
		return target.EndLine, nil
	case "before_return":
		// Last return statement in the function wins, not the first,
		// matching insert_within_function's reverse scan.
		for i := target.EndLine; i >= target.StartLine && i >= 1; i-- {
			if i > len(lines) {
				continue
			}
			if strings.Contains(strings.TrimSpace(lines[i-1]), "return") {
				return i, nil
			}
		}
		return 0, fmt.Errorf("fileops: no return statement found within function %q", funcName)
	default:
		for i := target.StartLine; i <= target.EndLine && i <= len(lines); i++ {
			if strings.Contains(lines[i-1], positionMarker) {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("fileops: position_marker %q not found within function %q", positionMarker, funcName)
	}
}

func afterMarkerLine(lines []string, marker string) (int, error) {
	for i, l := range lines {
		if strings.Contains(l, marker) {
			return i + 2, nil // 1-indexed, insert on the line after the match
		}
	}
	return 0, fmt.Errorf("fileops: marker %q not found", marker)
}

// globalLine resolves insert_location.global, matching insert_global:
// "start" skips the shebang, a leading Python module docstring,
// imports, and comment lines, landing on the first line of real code;
// "end" is handled by appendGlobalEnd instead, since appending needs to
// inspect and possibly rewrite the file's trailing lines rather than
// return a single insertion point.
func globalLine(lines []string, where, filename string) (int, error) {
	switch where {
	case "start":
		return globalStartLine(lines, filename), nil
	case "end":
		return len(lines) + 1, nil
	default:
		return 0, fmt.Errorf("fileops: unrecognized insert_location.global value %q", where)
	}
}

// globalStartLine returns the 1-indexed line to insert before: the
// first line that isn't a shebang, a Python module docstring, a blank
// separator, an import, or a comment. Go's parenthesized import block
// is tracked across lines, since unlike the other handled languages a
// single import spec never carries an "import "/"package " prefix of
// its own.
func globalStartLine(lines []string, filename string) int {
	language := langhandlers.DetectLanguage(filename)
	inImportBlock := false

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if i == 0 && strings.HasPrefix(trimmed, "#!") {
			continue
		}
		if trimmed == "" {
			continue
		}

		if language == "python" && i < 5 && (strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")) {
			quote := trimmed[:3]
			if strings.Contains(trimmed[3:], quote) {
				continue // one-line docstring
			}
			closed := false
			for j := i + 1; j < len(lines) && j < i+20; j++ {
				if strings.Contains(lines[j], quote) {
					i = j
					closed = true
					break
				}
			}
			if !closed {
				i = len(lines) - 1
			}
			continue
		}

		if language == "go" && inImportBlock {
			if trimmed == ")" {
				inImportBlock = false
			}
			continue
		}
		if language == "go" && trimmed == "import (" {
			inImportBlock = true
			continue
		}

		switch {
		case language == "python" && (strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ")):
			continue
		case language == "typescript" && (strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "require(")):
			continue
		case language == "cpp" && (strings.HasPrefix(trimmed, "#include") || strings.HasPrefix(trimmed, "using ")):
			continue
		case language == "go" && (strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "package ")):
			continue
		}

		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		return i + 1
	}
	return len(lines) + 1
}

// indentFromHint computes the indentation to apply to an inserted
// line's first line, matching the original's indent_from_hint: an
// explicit hint overrides prevLine's own indentation, otherwise
// prevLine's indentation is copied as-is.
func indentFromHint(hint, prevLine string) string {
	prevIndent := prevLine[:len(prevLine)-len(strings.TrimLeft(prevLine, " \t"))]
	const level = "    "
	switch hint {
	case "maintain_indent":
		return prevIndent
	case "increase_indent":
		return prevIndent + level
	case "decrease_indent":
		if len(prevIndent) >= len(level) {
			return prevIndent[:len(prevIndent)-len(level)]
		}
		return ""
	default:
		return prevIndent
	}
}
