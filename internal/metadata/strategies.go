package metadata

import (
	"regexp"
	"strings"
)

// labelScanLines bounds how far into a description artist labels are searched.
const labelScanLines = 15

// Source is the text a [Strategy] inspects.
type Source struct {
	Title       string
	Description string
	lines       []string
}

// NewSource splits the description into trimmed lines once for all strategies.
func NewSource(title, description string) *Source {
	raw := strings.Split(description, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return &Source{Title: strings.TrimSpace(title), Description: description, lines: lines}
}

// Lines returns up to n description lines; n <= 0 returns all of them.
func (s *Source) Lines(n int) []string {
	if n <= 0 || n > len(s.lines) {
		return s.lines
	}
	return s.lines[:n]
}

// Strategy proposes one raw candidate for a field, or "" when it has nothing.
type Strategy func(src *Source) string

var (
	spacedDash = regexp.MustCompile(`^(.+?)\s+[-–—]\s+\S`)
	bareDash   = regexp.MustCompile(`^([^-–—]+)[-–—]\s*\S`)
	pipeTilde  = regexp.MustCompile(`^([^|~]+)[|~]\s*\S`)

	artistLabel = regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(?:` +
		`(?:artist|performed\s+by|music\s+by|written\s+(?:and\s+performed\s+)?by|singer|vocals)\s*:\s*(.+)` +
		`|performed\s+by\s+(.+))$`)

	albumLabel = regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(?:` +
		`album\s*:` +
		`|from\s+the\s+album\s*[:\-–—]` +
		`|(?:taken|off)\s+(?:from\s+)?the\s+(?:album|record|lp|ep)\s*:` +
		`)\s*(.+)$`)
	albumQuoted = regexp.MustCompile(`(?i)from\s+the\s+album\s+["“]([^"”\n]+)["”]`)
	albumBare   = regexp.MustCompile(`(?i)from\s+the\s+album\s+([^\n.,!?(\[]+)`)
	albumParen  = regexp.MustCompile(`(?i)[(\[]([^)\]]*\b(?:album|ep|lp|single)\b[^)\]]*)[)\]]`)

	yearLabel  = regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(?:release(?:d)?(?:\s+date)?|year)\s*:\s*(.+)$`)
	yearRights = regexp.MustCompile(`[℗©]\s*((?:19|20)\d{2})\b`)
	bareYear   = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
)

// TitleDashArtist takes the text before a dash in the title, preferring a spaced separator.
func TitleDashArtist(src *Source) string {
	for _, re := range []*regexp.Regexp{spacedDash, bareDash} {
		if m := re.FindStringSubmatch(src.Title); m != nil {
			if left := strings.TrimSpace(m[1]); nonTrivial(left) {
				return left
			}
			return ""
		}
	}
	return ""
}

// LabeledArtist reads the first artist-style label in the opening description lines.
func LabeledArtist(src *Source) string {
	for _, line := range src.Lines(labelScanLines) {
		if m := artistLabel.FindStringSubmatch(line); m != nil {
			return firstNonEmpty(m[1:]...)
		}
	}
	return ""
}

// TitleDelimitedArtist takes the text before a pipe or tilde in the title.
func TitleDelimitedArtist(src *Source) string {
	if m := pipeTilde.FindStringSubmatch(src.Title); m != nil {
		if left := strings.TrimSpace(m[1]); nonTrivial(left) {
			return left
		}
	}
	return ""
}

// LabeledAlbum reads the first album label line in the description.
func LabeledAlbum(src *Source) string {
	for _, line := range src.Lines(0) {
		if m := albumLabel.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// InlineAlbum matches a "from the album" phrase anywhere in the description.
func InlineAlbum(src *Source) string {
	if m := albumQuoted.FindStringSubmatch(src.Description); m != nil {
		return m[1]
	}
	if m := albumBare.FindStringSubmatch(src.Description); m != nil {
		return m[1]
	}
	return ""
}

// TitleAlbumParenthetical takes a bracketed title segment naming an album, EP, LP or single.
func TitleAlbumParenthetical(src *Source) string {
	if m := albumParen.FindStringSubmatch(src.Title); m != nil {
		return m[1]
	}
	return ""
}

// LabeledYear reads a year from the first release or year label line.
func LabeledYear(src *Source) string {
	for _, line := range src.Lines(0) {
		if m := yearLabel.FindStringSubmatch(line); m != nil {
			return findYear(m[1])
		}
	}
	return ""
}

// RightsMarkYear reads the year following a ℗ or © mark.
func RightsMarkYear(src *Source) string {
	if m := yearRights.FindStringSubmatch(src.Description); m != nil {
		return m[1]
	}
	return ""
}

// DescriptionYear takes the first bare year in the description.
func DescriptionYear(src *Source) string {
	return findYear(src.Description)
}

// TitleYear takes the first year in the title.
func TitleYear(src *Source) string {
	return findYear(src.Title)
}

func findYear(s string) string {
	if m := bareYear.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
