package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/shared"
)

// artworkFilter letterboxes any image into a 600x600 square.
const artworkFilter = "scale=600:600:force_original_aspect_ratio=decrease,pad=600:600:(ow-iw)/2:(oh-ih)/2:black"

var (
	stderrTag      = regexp.MustCompile(`(?im)^\s+(title|artist|album|date)\s+:\s*(.+)$`)
	stderrDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
)

// FFmpeg wraps the ffmpeg command line for tagging and cover art.
type FFmpeg struct {
	binary  string
	tempDir string
	runner  process.Runner
	logger  *log.Logger
}

// NewFFmpeg creates an ffmpeg adapter. Intermediate artwork files go to tempDir, or [os.TempDir] when empty.
func NewFFmpeg(runner process.Runner, binary, tempDir string, logger *log.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FFmpeg{
		binary:  binary,
		tempDir: tempDir,
		runner:  runner,
		logger:  shared.WithLogger(logger, "tool", "ffmpeg"),
	}
}

// WriteTags rewrites path with the given tags, copying every stream unchanged.
//
// The tagged copy is written next to the original and renamed over it, so a failure leaves the original intact.
func (f *FFmpeg) WriteTags(ctx context.Context, path string, tags models.Tags) error {
	ext := filepath.Ext(path)
	temp := strings.TrimSuffix(path, ext) + "_temp" + ext

	_, err := f.run(ctx,
		"-i", path,
		"-map", "0",
		"-c", "copy",
		"-metadata", "title="+tags.Title,
		"-metadata", "artist="+tags.Artist,
		"-metadata", "album="+tags.Album,
		"-metadata", "date="+tags.Date,
		"-y", temp,
	)
	if err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("tag embed failed: %w", err)
	}

	if err := moveFile(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace tagged file: %w", err)
	}
	return nil
}

// ReadTags reads the container tags and duration of path.
//
// Tags come from the ffmetadata dump on stdout, with the input summary on stderr as a fallback.
func (f *FFmpeg) ReadTags(ctx context.Context, path string) (models.Tags, error) {
	res, err := f.run(ctx, "-i", path, "-f", "ffmetadata", "pipe:1")
	var exitErr *process.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return models.Tags{}, fmt.Errorf("tag read failed: %w", err)
	}
	return ParseTags(res.Stdout, res.Stderr), nil
}

// ParseTags combines an ffmetadata dump with the stream summary ffmpeg prints on stderr.
func ParseTags(ffmetadata, stderr []byte) models.Tags {
	var tags models.Tags

	scanner := bufio.NewScanner(bytes.NewReader(ffmetadata))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			tags.Title = value
		case "artist":
			tags.Artist = value
		case "album":
			tags.Album = value
		case "date":
			tags.Date = value
		}
	}

	for _, m := range stderrTag.FindAllSubmatch(stderr, -1) {
		value := strings.TrimSpace(string(m[2]))
		switch strings.ToLower(string(m[1])) {
		case "title":
			tags.Title = firstSet(tags.Title, value)
		case "artist":
			tags.Artist = firstSet(tags.Artist, value)
		case "album":
			tags.Album = firstSet(tags.Album, value)
		case "date":
			tags.Date = firstSet(tags.Date, value)
		}
	}

	if m := stderrDuration.FindSubmatch(stderr); m != nil {
		h, _ := strconv.Atoi(string(m[1]))
		mins, _ := strconv.Atoi(string(m[2]))
		s, _ := strconv.Atoi(string(m[3]))
		tags.Duration = h*3600 + mins*60 + s
	}
	return tags
}

// EmbedArtwork converts image to a square JPEG and attaches it to path as cover art.
func (f *FFmpeg) EmbedArtwork(ctx context.Context, path string, image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("%w: empty artwork", shared.ErrInvalidInput)
	}

	id := shared.GenerateID()
	imageIn := filepath.Join(f.tempDir, "artwork-in-"+id)
	imageJPG := filepath.Join(f.tempDir, "artwork-"+id+".jpg")
	output := filepath.Join(f.tempDir, "output-"+id+filepath.Ext(path))
	defer func() {
		for _, p := range []string{imageIn, imageJPG, output} {
			_ = os.Remove(p)
		}
	}()

	if err := os.WriteFile(imageIn, image, 0644); err != nil {
		return fmt.Errorf("write artwork: %w", err)
	}

	if _, err := f.run(ctx, "-i", imageIn, "-vf", artworkFilter, "-q:v", "2", "-y", imageJPG); err != nil {
		return fmt.Errorf("artwork conversion failed: %w", err)
	}

	if _, err := f.run(ctx,
		"-i", path,
		"-i", imageJPG,
		"-map", "0:a",
		"-map", "1:v",
		"-c:a", "copy",
		"-c:v", "copy",
		"-disposition:v:0", "attached_pic",
		"-y", output,
	); err != nil {
		return fmt.Errorf("artwork embed failed: %w", err)
	}

	if err := moveFile(output, path); err != nil {
		return fmt.Errorf("replace file with artwork: %w", err)
	}
	return nil
}

// ExtractArtwork returns the attached picture of path and its content type.
//
// A file without cover art yields nil data and no error.
func (f *FFmpeg) ExtractArtwork(ctx context.Context, path string) ([]byte, string, error) {
	res, err := f.run(ctx, "-i", path, "-an", "-vcodec", "copy", "-f", "image2", "pipe:1")
	if err != nil || len(res.Stdout) == 0 {
		f.logger.Debug("no artwork", "path", path, "err", err)
		return nil, "", nil
	}
	return res.Stdout, http.DetectContentType(res.Stdout), nil
}

func (f *FFmpeg) run(ctx context.Context, args ...string) (process.Result, error) {
	inv := process.Invocation{Executable: f.binary, Args: append([]string{"-hide_banner"}, args...)}
	return f.runner.Run(ctx, inv, nil)
}

// moveFile renames src over dst, copying when they live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func firstSet(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}
