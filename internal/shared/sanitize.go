package shared

import (
	"regexp"
	"strings"
)

// MaxFilenameLength bounds the sanitized title used as an output prefix, in runes.
const MaxFilenameLength = 200

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a video title into a filesystem-safe file prefix.
//
// Illegal characters become underscores, whitespace runs collapse to one space, the result is
// trimmed and cut to [MaxFilenameLength] runes. The output is stable for a given input, so the
// same call locates a file written under its result.
func SanitizeFilename(title string) string {
	s := illegalFilenameChars.ReplaceAllString(title, "_")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if r := []rune(s); len(r) > MaxFilenameLength {
		s = string(r[:MaxFilenameLength])
	}
	return s
}
