package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/shared"
)

// DefaultFormat prefers audio-only streams that need no re-encoding.
const DefaultFormat = "bestaudio[ext=m4a]/bestaudio[ext=mp3]/bestaudio"

var progressPattern = regexp.MustCompile(`\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)

// ParseProgress extracts the download percentage from one line of yt-dlp output.
func ParseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct > 100 {
		return 0, false
	}
	return pct, true
}

// DownloadRequest describes one audio download.
type DownloadRequest struct {
	URL            string
	OutputTemplate string // yt-dlp output template, e.g. /dir/title.%(ext)s
	Format         string // yt-dlp format selector; empty uses [DefaultFormat]
}

// YTDLP wraps the yt-dlp command line.
type YTDLP struct {
	binary         string
	ffmpegLocation string
	runner         process.Runner
	logger         *log.Logger
}

// NewYTDLP creates a yt-dlp adapter. ffmpegLocation is passed through when it is not a bare command name.
func NewYTDLP(runner process.Runner, binary, ffmpegLocation string, logger *log.Logger) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YTDLP{
		binary:         binary,
		ffmpegLocation: ffmpegLocation,
		runner:         runner,
		logger:         shared.WithLogger(logger, "tool", "yt-dlp"),
	}
}

// FetchInfo queries the metadata record for a single video.
func (y *YTDLP) FetchInfo(ctx context.Context, url string) (*models.VideoInfo, error) {
	res, err := y.run(ctx, nil, "--dump-json", "--no-playlist", url)
	if err != nil {
		return nil, fmt.Errorf("metadata query failed: %w", err)
	}

	var info models.VideoInfo
	if err := json.Unmarshal(bytes.TrimSpace(res.Stdout), &info); err != nil {
		return nil, fmt.Errorf("%w: decode video info: %v", shared.ErrToolOutput, err)
	}
	if info.Title == "" {
		info.Title = info.ID
	}
	return &info, nil
}

// Download fetches the audio stream, reporting each parsed percentage to onProgress as it arrives.
//
// Progress is read from both output streams.
func (y *YTDLP) Download(ctx context.Context, req DownloadRequest, onProgress func(float64)) error {
	if req.OutputTemplate == "" {
		return fmt.Errorf("%w: output template", shared.ErrMissingArgument)
	}
	format := req.Format
	if format == "" {
		format = DefaultFormat
	}

	args := []string{"--format", format, "--output", req.OutputTemplate}
	if y.ffmpegLocation != "" && strings.ContainsAny(y.ffmpegLocation, `/\`) {
		args = append(args, "--ffmpeg-location", y.ffmpegLocation)
	}
	args = append(args, "--newline", "--no-playlist", req.URL)

	_, err := y.run(ctx, func(_ process.Stream, line string) {
		if onProgress == nil {
			return
		}
		if pct, ok := ParseProgress(line); ok {
			onProgress(pct)
		}
	}, args...)
	return err
}

// playlistItem is one line of --flat-playlist output.
type playlistItem struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	WebpageURL    string  `json:"webpage_url"`
	Duration      float64 `json:"duration"`
	Thumbnail     string  `json:"thumbnail"`
	PlaylistTitle string  `json:"playlist_title"`
	Thumbnails    []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// Playlist lists the entries of a playlist without downloading them.
//
// The URL is used verbatim since normalizing would drop the list parameter.
func (y *YTDLP) Playlist(ctx context.Context, url string) (*models.Playlist, error) {
	res, err := y.run(ctx, nil, "--flat-playlist", "--dump-json", "--no-download", url)
	if err != nil {
		return nil, fmt.Errorf("playlist query failed: %w", err)
	}

	playlist := &models.Playlist{Entries: []models.PlaylistEntry{}}
	scanner := bufio.NewScanner(bytes.NewReader(res.Stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var item playlistItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("%w: decode playlist entry: %v", shared.ErrToolOutput, err)
		}
		if playlist.Title == "" {
			playlist.Title = item.PlaylistTitle
		}
		playlist.Entries = append(playlist.Entries, item.entry())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read playlist output: %v", shared.ErrToolOutput, err)
	}
	return playlist, nil
}

func (p playlistItem) entry() models.PlaylistEntry {
	e := models.PlaylistEntry{
		URL:       p.WebpageURL,
		Title:     p.Title,
		Duration:  p.Duration,
		Thumbnail: p.Thumbnail,
	}
	if e.URL == "" {
		if strings.HasPrefix(p.URL, "http") {
			e.URL = p.URL
		} else {
			e.URL = "https://www.youtube.com/watch?v=" + p.ID
		}
	}
	if e.Title == "" {
		e.Title = p.ID
	}
	if e.Thumbnail == "" && len(p.Thumbnails) > 0 {
		e.Thumbnail = p.Thumbnails[0].URL
	}
	return e
}

// SearchThumbnail resolves a thumbnail URL for a video URL or, failing that, the first search hit for query.
func (y *YTDLP) SearchThumbnail(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	target := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		target = "ytsearch1:" + query
	}

	res, err := y.run(ctx, nil, "--dump-json", "--no-playlist", "--no-download", target)
	if err != nil {
		return "", fmt.Errorf("thumbnail search failed: %w", err)
	}

	out := bytes.TrimSpace(res.Stdout)
	if len(out) == 0 {
		return "", fmt.Errorf("%w: no results for %q", shared.ErrFileNotFound, query)
	}
	var info models.VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("%w: decode search result: %v", shared.ErrToolOutput, err)
	}
	if info.Thumbnail == "" {
		return "", fmt.Errorf("%w: result has no thumbnail", shared.ErrFileNotFound)
	}
	return info.Thumbnail, nil
}

func (y *YTDLP) run(ctx context.Context, onLine process.LineFunc, args ...string) (process.Result, error) {
	inv := process.Invocation{Executable: y.binary, Args: args}
	y.logger.Debug("running", "args", strings.Join(args, " "))
	return y.runner.Run(ctx, inv, onLine)
}
