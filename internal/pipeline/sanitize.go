package pipeline

import (
	"strings"
	"unicode/utf8"
)

// sanitizeCompletion cleans up model output before it is used downstream.
// Models occasionally wrap a reformulated question in a Markdown fence or in
// quotes; neither belongs in a retrieval query.
func sanitizeCompletion(s string) string {
	s = trimBOM(strings.TrimSpace(s))
	if inner, ok := stripFirstCodeFence(s); ok {
		s = strings.TrimSpace(inner)
	}
	s = stripWrappingQuotes(s)
	return strings.TrimSpace(s)
}

// stripFirstCodeFence removes the first fenced code block if s starts with ``` or ~~~.
// It accepts an optional language tag (e.g., ```text).
func stripFirstCodeFence(s string) (inner string, ok bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	if strings.HasPrefix(trim, "```") || strings.HasPrefix(trim, "~~~") {
		fence := "```"
		if strings.HasPrefix(trim, "~~~") {
			fence = "~~~"
		}
		rest := trim[len(fence):]
		// Skip optional language tag up to first newline
		if idx := strings.IndexByte(rest, '\n'); idx != -1 {
			rest = rest[idx+1:]
		} else {
			return "", false
		}
		if end := strings.Index(rest, fence); end != -1 {
			return rest[:end], true
		}
	}
	return "", false
}

// stripWrappingQuotes unwraps a string fully enclosed in matching quotes.
func stripWrappingQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		inner := s[1 : len(s)-1]
		// Only unwrap when the quotes actually wrap the whole string.
		if !strings.ContainsRune(inner, rune(first)) {
			return inner
		}
	}
	return s
}

func trimBOM(s string) string {
	if strings.HasPrefix(s, "\uFEFF") {
		return strings.TrimPrefix(s, "\uFEFF")
	}
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF && utf8.ValidString(s[3:]) {
		return s[3:]
	}
	return s
}
