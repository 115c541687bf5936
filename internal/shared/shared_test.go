package shared

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeURL(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "long form with extra params",
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&t=42s",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "mobile host",
			in:   "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "music host",
			in:   "https://music.youtube.com/watch?v=abc123&feature=share",
			want: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name: "short link",
			in:   "https://youtu.be/dQw4w9WgXcQ?si=tracking",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "already canonical",
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "watch without id passes through",
			in:   "https://www.youtube.com/watch?list=PL123",
			want: "https://www.youtube.com/watch?list=PL123",
		},
		{
			name: "playlist page passes through",
			in:   "https://www.youtube.com/playlist?list=PL123",
			want: "https://www.youtube.com/playlist?list=PL123",
		},
		{
			name: "other host passes through",
			in:   "https://soundcloud.com/artist/track",
			want: "https://soundcloud.com/artist/track",
		},
		{
			name: "unparseable passes through",
			in:   "not a url",
			want: "not a url",
		},
		{
			name: "bad escape passes through",
			in:   "https://youtu.be/%zz",
			want: "https://youtu.be/%zz",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeURL(got); again != got {
				t.Errorf("NormalizeURL is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	t.Run("normalizes valid input", func(t *testing.T) {
		got, err := ValidateSourceURL("  https://youtu.be/abc  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty is a missing argument", func(t *testing.T) {
		_, err := ValidateSourceURL("   ")
		if !errors.Is(err, ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	for _, raw := range []string{"ftp://example.com/file", "example.com/watch", "https://", "://broken"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ValidateSourceURL(raw)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for %q, got %v", raw, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tc := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain", title: "Artist - Song", want: "Artist - Song"},
		{name: "illegal characters", title: `AC/DC: "Back" <In> Black? |*\`, want: "AC_DC_ _Back_ _In_ Black_ ___"},
		{name: "whitespace collapse", title: "  Song \t\n  Title  ", want: "Song Title"},
		{name: "empty", title: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.title); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}

	t.Run("truncates by rune", func(t *testing.T) {
		got := SanitizeFilename(strings.Repeat("é", 250))
		if n := len([]rune(got)); n != MaxFilenameLength {
			t.Errorf("expected %d runes, got %d", MaxFilenameLength, n)
		}
	})

	t.Run("stable", func(t *testing.T) {
		title := "Boygenius - Emily I'm Sorry (Official Video)"
		if SanitizeFilename(title) != SanitizeFilename(title) {
			t.Error("sanitizing the same title twice should match")
		}
	})
}

func TestFormatters(t *testing.T) {
	durations := map[int]string{0: "0:00", 59: "0:59", 61: "1:01", 3725: "1:02:05"}
	for in, want := range durations {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}

	sizes := map[int64]string{512: "512 B", 2048: "2.0 KiB", 5 * 1024 * 1024: "5.0 MiB"}
	for in, want := range sizes {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := map[string]log.Level{
		"debug":  log.DebugLevel,
		" WARN ": log.WarnLevel,
		"error":  log.ErrorLevel,
		"bogus":  log.InfoLevel,
		"":       log.InfoLevel,
	}
	for in, want := range tc {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
