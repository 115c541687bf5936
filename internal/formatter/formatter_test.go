package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
	th "github.com/desertthunder/audiograb/internal/testing"
)

var (
	created = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	records = []Record{
		{
			Filename:  "Boygenius - Emily I'm Sorry.m4a",
			Title:     "Emily I'm Sorry",
			Artist:    "Boygenius",
			Album:     "the record",
			Year:      "2023",
			Duration:  185,
			Size:      2048,
			Date:      created,
			SourceURL: "https://www.youtube.com/watch?v=abc",
		},
		{
			Filename: "untagged.m4a",
			Duration: 60,
			Size:     1024,
		},
	}
)

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(records)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Filename,Title,Artist,Album,Year,Duration,Size,Date,Source\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		for _, want := range []string{"Boygenius", "the record", "185", "2048", "2024-05-01T10:30:00Z", "watch?v=abc"} {
			if !strings.Contains(output, want) {
				t.Errorf("CSV missing %q", want)
			}
		}
		if !strings.Contains(output, "untagged.m4a,,,,,60,1024,,\n") {
			t.Errorf("expected empty cells for untagged file, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Download History", records)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Download History",
			"**Tracks**: 2",
			"**Total size**: 3.0 KiB",
			"1. Boygenius - Emily I'm Sorry (the record) 2023 [3:05] `Boygenius - Emily I'm Sorry.m4a`",
			"2. untagged.m4a [1:00] `untagged.m4a`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Library", records)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		want := "Library\nTracks: 2\n\n1. Boygenius - Emily I'm Sorry\n2. untagged.m4a\n"
		if string(data) != want {
			t.Errorf("expected %q, got %q", want, string(data))
		}
	})

	t.Run("ExportJSON", func(t *testing.T) {
		data, err := Export(FormatJSON, "", records)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		var decoded []Record
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].Artist != "Boygenius" {
			t.Errorf("unexpected records %+v", decoded)
		}
	})

	t.Run("ExportEmpty", func(t *testing.T) {
		for _, f := range Formats {
			if _, err := Export(f, "Empty", nil); err != nil {
				t.Errorf("%s: unexpected error %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "text", want: FormatText},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestConverters(t *testing.T) {
	t.Run("FromHistory", func(t *testing.T) {
		got := FromHistory([]*models.HistoryEntry{{
			JobID:       "j1",
			SourceURL:   "https://youtu.be/abc",
			Filename:    "a.m4a",
			Title:       "A",
			Artist:      "B",
			ReleaseYear: "1999",
			Duration:    10,
			Size:        5,
			CreatedAt:   created,
		}})
		want := Record{Filename: "a.m4a", Title: "A", Artist: "B", Year: "1999", Duration: 10, Size: 5, Date: created, SourceURL: "https://youtu.be/abc"}
		if len(got) != 1 || got[0] != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("FromLibrary", func(t *testing.T) {
		got := FromLibrary([]models.LibraryFile{{
			Filename: "a.m4a",
			Size:     5,
			Date:     created,
			Metadata: models.Tags{Title: "A", Artist: "B", Album: "C", Date: "2001", Duration: 10},
		}})
		want := Record{Filename: "a.m4a", Title: "A", Artist: "B", Album: "C", Year: "2001", Duration: 10, Size: 5, Date: created}
		if len(got) != 1 || got[0] != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "history.csv")

		got, err := WriteExport(FormatCSV, "History", records, "history", path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Boygenius") {
			t.Errorf("unexpected file content %q", content)
		}
	})

	t.Run("WithDefaultPath", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "library")

		got, err := WriteExport(FormatMarkdown, "Library", records, base, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != base+".md" {
			t.Errorf("expected %s.md, got %s", base, got)
		}
		th.AssertFileExists(t, got)
	})
}
