// Package grading decides whether a submitted answer matches a test case.
package grading

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Lines normalizes text for comparison: line endings are unified to LF, the
// whole text is trimmed, and every line is trimmed.
func Lines(text string) []string {
	text = strings.TrimSpace(lineEndings.Replace(text))
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Matches reports whether submitted equals expected line by line after
// normalization. Differing line counts never match.
func Matches(submitted, expected string) bool {
	got, want := Lines(submitted), Lines(expected)
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
