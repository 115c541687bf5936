package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

// AudioExtensions are the file types the library lists and edits.
var AudioExtensions = []string{".m4a", ".mp3", ".webm", ".opus"}

// TagEditor is the subset of [FFmpeg] the library needs.
type TagEditor interface {
	ReadTags(ctx context.Context, path string) (models.Tags, error)
	WriteTags(ctx context.Context, path string, tags models.Tags) error
	EmbedArtwork(ctx context.Context, path string, image []byte) error
	ExtractArtwork(ctx context.Context, path string) ([]byte, string, error)
}

// Library manages the audio files in the downloads directory.
type Library struct {
	dir    string
	tags   TagEditor
	logger *log.Logger
}

// NewLibrary creates a [Library] rooted at dir.
func NewLibrary(dir string, tags TagEditor, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{dir: dir, tags: tags, logger: shared.WithLogger(logger, "component", "library")}
}

// Dir returns the library root.
func (l *Library) Dir() string {
	return l.dir
}

// List returns every audio file with its tags, newest first.
//
// Files whose tags cannot be read are listed with empty tags.
func (l *Library) List(ctx context.Context) ([]models.LibraryFile, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads directory: %w", err)
	}

	files := make([]models.LibraryFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !IsAudioFile(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}

		file := models.LibraryFile{Filename: name, Size: info.Size(), Date: info.ModTime().UTC()}
		if tags, err := l.tags.ReadTags(ctx, filepath.Join(l.dir, name)); err == nil {
			file.Metadata = tags
		} else {
			l.logger.Debug("tag read failed", "file", name, "err", err)
		}
		files = append(files, file)
	}

	slices.SortStableFunc(files, func(a, b models.LibraryFile) int {
		return b.Date.Compare(a.Date)
	})
	return files, nil
}

// Resolve maps a bare filename onto a path inside the library, rejecting anything that escapes it.
func (l *Library) Resolve(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: filename", shared.ErrMissingArgument)
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: filename %q must not contain a path", shared.ErrInvalidInput, filename)
	}
	if !IsAudioFile(filename) {
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedFile, filename)
	}

	path := filepath.Join(l.dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", shared.ErrFileNotFound, filename)
	}
	return path, nil
}

// ReadTags reads the tags of one library file.
func (l *Library) ReadTags(ctx context.Context, filename string) (models.Tags, error) {
	path, err := l.Resolve(filename)
	if err != nil {
		return models.Tags{}, err
	}
	return l.tags.ReadTags(ctx, path)
}

// WriteTags replaces the tags of one library file.
func (l *Library) WriteTags(ctx context.Context, filename string, tags models.Tags) error {
	path, err := l.Resolve(filename)
	if err != nil {
		return err
	}
	if err := l.tags.WriteTags(ctx, path, tags); err != nil {
		return err
	}
	l.logger.Info("tags updated", "file", filename)
	return nil
}

// Artwork returns the cover art of one library file, or nil when it has none.
func (l *Library) Artwork(ctx context.Context, filename string) ([]byte, string, error) {
	path, err := l.Resolve(filename)
	if err != nil {
		return nil, "", err
	}
	return l.tags.ExtractArtwork(ctx, path)
}

// SetArtwork attaches image as the cover art of one library file.
func (l *Library) SetArtwork(ctx context.Context, filename string, image []byte) error {
	path, err := l.Resolve(filename)
	if err != nil {
		return err
	}
	if err := l.tags.EmbedArtwork(ctx, path, image); err != nil {
		return err
	}
	l.logger.Info("artwork updated", "file", filename)
	return nil
}

// IsAudioFile reports whether name has one of the [AudioExtensions].
func IsAudioFile(name string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(filepath.Ext(name)))
}

// FindOutput returns the first file in dir, by name, that starts with prefix.
func FindOutput(dir, prefix string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, ".part") {
			return name, true, nil
		}
	}
	return "", false, nil
}
