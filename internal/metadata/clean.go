package metadata

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minCandidateLen = 2
	maxCandidateLen = 100
)

// clutter holds words that describe an upload rather than name an artist.
var clutter = map[string]bool{
	"official": true, "audio": true, "video": true, "music": true, "lyrics": true, "lyric": true,
	"hd": true, "hq": true, "4k": true, "remastered": true, "remaster": true, "visualizer": true,
	"visualiser": true, "full": true, "album": true, "version": true, "explicit": true, "clean": true,
	"mv": true, "topic": true,
}

var urlFragments = []string{"http", "www.", "://"}

const trailingPunct = ".,;:!?\"'“”‘’`´"

// clean normalizes a raw candidate and reports whether the result is acceptable.
func clean(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, trailingPunct)
	s = strings.TrimLeftFunc(s, notWord)
	s = trimTrailingNonWord(s)
	s = strings.TrimSpace(s)
	return s, valid(s)
}

func valid(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minCandidateLen || n > maxCandidateLen {
		return false
	}
	lower := strings.ToLower(s)
	for _, frag := range urlFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}

func notWord(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// trimTrailingNonWord strips trailing non-word runes but keeps a closing bracket whose opener is present.
func trimTrailingNonWord(s string) string {
	for s != "" {
		r, size := utf8.DecodeLastRuneInString(s)
		if !notWord(r) {
			return s
		}
		if open, ok := closers[r]; ok && strings.Count(s, string(open)) >= strings.Count(s, string(r)) {
			return s
		}
		s = s[:len(s)-size]
	}
	return s
}

var closers = map[rune]rune{')': '(', ']': '['}

// isClutter reports whether every word of s belongs to the clutter vocabulary.
func isClutter(s string) bool {
	words := strings.FieldsFunc(strings.ToLower(s), notWord)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !clutter[w] {
			return false
		}
	}
	return true
}

// nonTrivial is the acceptance rule for a title prefix guessed to be an artist.
func nonTrivial(s string) bool {
	s = strings.TrimSpace(s)
	return utf8.RuneCountInString(s) >= minCandidateLen && !isClutter(s)
}
