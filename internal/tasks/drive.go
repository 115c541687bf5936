package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
)

// stepError names the driving step that failed.
type stepError struct {
	step string
	err  error
}

func (s *stepError) Error() string {
	return s.step + ": " + s.err.Error()
}

func (s *stepError) Unwrap() error {
	return s.err
}

func failStep(step string, err error) error {
	return &stepError{step: step, err: err}
}

// result is what a successful run hands to the complete transition.
type result struct {
	filename string
	inferred models.Inferred
	info     *models.VideoInfo
	tags     models.Tags
}

// drive runs job e from pending to a terminal state. It never panics.
func (r *Registry) drive(e *entry) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(e, fmt.Errorf("internal error: %v", rec))
		}
	}()

	ctx := context.Background()
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.fail(e, err)
			return
		}
		defer r.sem.Release(1)
	}

	if !r.transition(e, models.StateRunning, nil, statusEvent) {
		return
	}
	logger := r.logger.With("job_id", e.job.ID)
	logger.Info("job running", "url", e.job.SourceURL)

	res, err := r.run(ctx, e)
	if err != nil {
		r.fail(e, err)
		return
	}

	completed := r.transition(e, models.StateComplete, func(j *models.Job) {
		inferred := res.inferred
		j.Filename = res.filename
		j.Progress = 100
		j.HasProgress = true
		j.Metadata = &inferred
	}, completeEvent)
	if !completed {
		return
	}
	job := e.snapshot()
	logger.Info("job complete", "file", res.filename, "elapsed", elapsed(job, r.now()).Round(time.Millisecond))
	r.record(job, res)
}

// run performs the external steps of a job and returns the produced file.
func (r *Registry) run(ctx context.Context, e *entry) (*result, error) {
	url := e.snapshot().SourceURL

	if err := r.ensureDir(); err != nil {
		return nil, failStep("prepare", err)
	}

	info, err := r.deps.Downloader.FetchInfo(ctx, url)
	if err != nil {
		return nil, failStep("metadata query failed", err)
	}

	prefix := shared.SanitizeFilename(info.Title)
	if prefix == "" {
		prefix = shared.SanitizeFilename(info.ID)
	}
	if prefix == "" {
		prefix = e.job.ID
	}

	e.mu.Lock()
	e.job.Title = info.Title
	e.mu.Unlock()

	req := services.DownloadRequest{
		URL:            url,
		OutputTemplate: filepath.Join(r.opts.Dir, prefix+".%(ext)s"),
		Format:         r.opts.Format,
	}
	if err := r.deps.Downloader.Download(ctx, req, func(pct float64) { r.progress(e, pct) }); err != nil {
		return nil, failStep("download failed", err)
	}

	filename, err := r.publishedFilename(prefix)
	if err != nil {
		return nil, failStep("locate output", err)
	}
	path := r.outputPath(filename)

	inferred := r.deps.Engine.Infer(info.Title, info.Description)
	tags := tagsFor(info, inferred)
	if err := r.deps.Tagger.WriteTags(ctx, path, tags); err != nil {
		return nil, failStep("tag embed failed", err)
	}

	r.embedArtwork(ctx, e.job.ID, path, info.Thumbnail)
	return &result{filename: filename, inferred: inferred, info: info, tags: tags}, nil
}

// embedArtwork attaches the thumbnail to path. Failures are logged and swallowed.
func (r *Registry) embedArtwork(ctx context.Context, id, path, thumbnail string) {
	if !r.opts.EmbedArtwork || r.deps.Artwork == nil || thumbnail == "" {
		return
	}

	image, err := r.deps.Artwork.Fetch(ctx, thumbnail)
	if err != nil {
		r.logger.Warn("thumbnail fetch failed", "job_id", id, "err", err)
		return
	}
	if err := r.deps.Tagger.EmbedArtwork(ctx, path, image); err != nil {
		r.logger.Warn("thumbnail embed failed", "job_id", id, "err", err)
	}
}

// record appends the finished download to the history store, if one is configured.
func (r *Registry) record(job models.Job, res *result) {
	if r.deps.History == nil {
		return
	}

	h := &models.HistoryEntry{
		JobID:       job.ID,
		SourceURL:   job.SourceURL,
		Filename:    job.Filename,
		Title:       res.tags.Title,
		Artist:      res.tags.Artist,
		Album:       res.tags.Album,
		ReleaseYear: res.tags.Date,
		Duration:    int(res.info.Duration),
	}
	if fi, err := os.Stat(r.outputPath(job.Filename)); err == nil {
		h.Size = fi.Size()
	}
	if err := r.deps.History.Create(h); err != nil {
		r.logger.Warn("failed to record download history", "job_id", job.ID, "err", err)
	}
}

// tagsFor fills the tags written to the file, falling back to the uploader and upload year where inference found nothing.
func tagsFor(info *models.VideoInfo, inferred models.Inferred) models.Tags {
	tags := inferred.Tags()
	if tags.Title == "" {
		tags.Title = info.Title
	}
	if tags.Artist == "" {
		tags.Artist = strings.TrimSuffix(info.UploaderName(), " - Topic")
	}
	if tags.Date == "" && len(info.UploadDate) == 8 {
		tags.Date = info.UploadDate[:4]
	}
	return tags
}

// elapsed reports how long job has been or was running.
func elapsed(job models.Job, now time.Time) time.Duration {
	if job.FinishedAt != nil {
		return job.FinishedAt.Sub(job.CreatedAt)
	}
	return now.Sub(job.CreatedAt)
}
