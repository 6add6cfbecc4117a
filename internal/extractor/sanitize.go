package extractor

import "strings"

// Sanitize isolates a best-effort JSON candidate from raw model output. It
// tolerates markdown fences, surrounding prose and //-style comment lines,
// and never fails; an unparseable result is the validator's problem.
func Sanitize(raw string) string {
	candidate := raw

	// Greedy outer match: everything from the first '{' to the last '}'.
	// This drops leading/trailing prose even when no code fence is present.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidate = raw[start : end+1]
	} else {
		candidate = stripFences(raw)
	}

	candidate = stripCommentLines(candidate)

	return strings.TrimSpace(candidate)
}

// stripFences removes leading/trailing triple-backtick markers, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop a language tag like "json" up to the first newline.
		if nl := strings.Index(s, "\n"); nl >= 0 {
			firstLine := strings.TrimSpace(s[:nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]\"") {
				s = s[nl+1:]
			}
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	return s
}

// stripCommentLines drops lines that consist only of a //-style comment.
// Valid JSON never contains these, but models sometimes emit them.
func stripCommentLines(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
