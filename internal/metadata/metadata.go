package metadata

import (
	"regexp"
	"strings"

	"github.com/desertthunder/audiograb/internal/models"
)

// Engine resolves each field by trying its strategies in order.
type Engine struct {
	Artist []Strategy
	Album  []Strategy
	Year   []Strategy
}

// NewEngine returns an [Engine] with the default strategy order.
func NewEngine() *Engine {
	return &Engine{
		Artist: []Strategy{TitleDashArtist, LabeledArtist, TitleDelimitedArtist},
		Album:  []Strategy{LabeledAlbum, InlineAlbum, TitleAlbumParenthetical},
		Year:   []Strategy{LabeledYear, RightsMarkYear, DescriptionYear, TitleYear},
	}
}

var defaultEngine = NewEngine()

// Infer guesses metadata from a video title and description with the default [Engine].
func Infer(title, description string) models.Inferred {
	return defaultEngine.Infer(title, description)
}

// Infer guesses metadata from a video title and description.
func (e *Engine) Infer(title, description string) models.Inferred {
	src := NewSource(title, description)
	artist := resolve(e.Artist, src)
	return models.Inferred{
		Title:       CleanTitle(title, artist),
		Artist:      artist,
		Album:       resolve(e.Album, src),
		ReleaseYear: resolve(e.Year, src),
	}
}

// resolve returns the first cleaned candidate that passes validation, or "".
func resolve(strategies []Strategy, src *Source) string {
	for _, strategy := range strategies {
		raw := strategy(src)
		if raw == "" {
			continue
		}
		if candidate, ok := clean(raw); ok {
			return candidate
		}
	}
	return ""
}

var (
	decorationSuffix = regexp.MustCompile(`(?i)\s*[(\[](?:official|music|audio|video|lyric|lyrics|hd|hq|visualizer)[^)\]]*[)\]]\s*$`)
	yearSuffix       = regexp.MustCompile(`\s*\(?\b\d{4}\)?\s*$`)
)

// CleanTitle strips a leading artist prefix and trailing upload decorations from a title.
//
// The untouched title is returned when cleaning would leave nothing.
func CleanTitle(title, artist string) string {
	cleaned := strings.TrimSpace(title)
	if artist != "" {
		prefix := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(artist) + `(?:\s*[-–—:|~]\s*|\s+)`)
		cleaned = prefix.ReplaceAllString(cleaned, "")
	}

	cleaned = decorationSuffix.ReplaceAllString(cleaned, "")
	cleaned = yearSuffix.ReplaceAllString(cleaned, "")

	if cleaned = strings.TrimSpace(cleaned); cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}
