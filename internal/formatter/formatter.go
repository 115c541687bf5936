// package formatter provides functions to export download history and library listings to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// Formats lists every supported [Format].
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat maps a flag value onto a [Format]. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: format %q (want json, csv, markdown or txt)", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension written for f.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Record is one exported row, built from a history entry or a library file.
type Record struct {
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Year      string    `json:"year"`
	Duration  int       `json:"duration"`
	Size      int64     `json:"size"`
	Date      time.Time `json:"date"`
	SourceURL string    `json:"sourceUrl,omitempty"`
}

// FromHistory converts history entries into records, keeping their order.
func FromHistory(entries []*models.HistoryEntry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			Filename:  e.Filename,
			Title:     e.Title,
			Artist:    e.Artist,
			Album:     e.Album,
			Year:      e.ReleaseYear,
			Duration:  e.Duration,
			Size:      e.Size,
			Date:      e.CreatedAt,
			SourceURL: e.SourceURL,
		})
	}
	return records
}

// FromLibrary converts library files into records, keeping their order.
func FromLibrary(files []models.LibraryFile) []Record {
	records := make([]Record, 0, len(files))
	for _, f := range files {
		records = append(records, Record{
			Filename: f.Filename,
			Title:    f.Metadata.Title,
			Artist:   f.Metadata.Artist,
			Album:    f.Metadata.Album,
			Year:     f.Metadata.Date,
			Duration: f.Metadata.Duration,
			Size:     f.Size,
			Date:     f.Date,
		})
	}
	return records
}

// Export renders records in format f. title heads the Markdown and text renderings.
func Export(f Format, title string, records []Record) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := shared.MarshalJSON(records, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatCSV:
		return ExportToCSV(records)
	case FormatMarkdown:
		return ExportToMarkdown(title, records)
	case FormatText:
		return ExportToText(title, records)
	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToCSV converts records to CSV format with columns: Filename, Title, Artist, Album, Year, Duration, Size, Date, Source
func ExportToCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Filename", "Title", "Artist", "Album", "Year", "Duration", "Size", "Date", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Filename,
			r.Title,
			r.Artist,
			r.Album,
			r.Year,
			strconv.Itoa(r.Duration),
			strconv.FormatInt(r.Size, 10),
			formatDate(r.Date),
			r.SourceURL,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts records to a numbered Markdown list under a title heading
func ExportToMarkdown(title string, records []Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(records)))
	buf.WriteString(fmt.Sprintf("**Total size**: %s\n\n", shared.FormatBytes(totalSize(records))))

	buf.WriteString("## Tracks\n\n")
	for i, r := range records {
		albumPart := ""
		if r.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", r.Album)
		}
		if r.Year != "" {
			albumPart += fmt.Sprintf(" %s", r.Year)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s] `%s`\n", i+1, displayName(r), albumPart, shared.FormatDuration(r.Duration), r.Filename))
	}

	return buf.Bytes(), nil
}

// ExportToText converts records to plain text format
func ExportToText(title string, records []Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(records)))

	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, displayName(r)))
	}

	return buf.Bytes(), nil
}

// WriteExport renders records in format f and writes them to path.
//
// Defaults to {base}{ext} in the working directory when path is empty.
func WriteExport(f Format, title string, records []Record, base, path string) (string, error) {
	if path == "" {
		path = base + f.Ext()
	}

	data, err := Export(f, title, records)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

func displayName(r Record) string {
	switch {
	case r.Artist != "" && r.Title != "":
		return r.Artist + " - " + r.Title
	case r.Title != "":
		return r.Title
	default:
		return r.Filename
	}
}

func totalSize(records []Record) int64 {
	var n int64
	for _, r := range records {
		n += r.Size
	}
	return n
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
