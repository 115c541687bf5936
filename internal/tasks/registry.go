package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/metadata"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	"golang.org/x/sync/semaphore"
)

// RegistryOpts contains configuration for a [Registry].
type RegistryOpts struct {
	Dir           string        // Download directory (default: ./downloads)
	Format        string        // yt-dlp format selector (default: [services.DefaultFormat])
	DefaultExt    string        // Extension assumed when the output file cannot be found (default: .m4a)
	MaxConcurrent int           // Jobs allowed to run at once; 0 means unbounded
	Retention     time.Duration // How long terminal jobs stay readable; 0 keeps them forever
	EmbedArtwork  bool          // Attach the video thumbnail as cover art
}

// RegistryDeps are the collaborators a [Registry] drives jobs with.
//
// Artwork and History are optional.
type RegistryDeps struct {
	Downloader services.Downloader
	Tagger     services.Tagger
	Artwork    services.ArtworkFetcher
	History    models.HistoryRepository
	Engine     *metadata.Engine
}

// entry is the registry-owned record of one job.
type entry struct {
	mu  sync.Mutex
	job models.Job
}

func (e *entry) snapshot() models.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.job
	if job.Metadata != nil {
		m := *job.Metadata
		job.Metadata = &m
	}
	return job
}

// Registry owns the job table and drives every submitted job to a terminal state.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	closed bool

	broadcast *Broadcaster
	deps      RegistryDeps
	opts      RegistryOpts
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	logger    *log.Logger
	now       func() time.Time
}

// NewRegistry creates a [Registry]. Jobs start driving as soon as they are submitted.
func NewRegistry(deps RegistryDeps, opts RegistryOpts, logger *log.Logger) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Dir == "" {
		opts.Dir = "./downloads"
	}
	if opts.DefaultExt == "" {
		opts.DefaultExt = ".m4a"
	}
	if !strings.HasPrefix(opts.DefaultExt, ".") {
		opts.DefaultExt = "." + opts.DefaultExt
	}
	if deps.Engine == nil {
		deps.Engine = metadata.NewEngine()
	}

	r := &Registry{
		jobs:      make(map[string]*entry),
		broadcast: NewBroadcaster(logger),
		deps:      deps,
		opts:      opts,
		logger:    shared.WithLogger(logger, "component", "registry"),
		now:       time.Now,
	}
	if opts.MaxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return r
}

// Submit validates url, records a pending job and starts driving it.
//
// Only input errors are returned; everything that goes wrong later ends the job in failed.
func (r *Registry) Submit(url string) (string, error) {
	canonical, err := shared.ValidateSourceURL(url)
	if err != nil {
		return "", err
	}

	now := r.now()
	e := &entry{job: models.Job{
		ID:        shared.GenerateID(),
		SourceURL: canonical,
		State:     models.StatePending,
		CreatedAt: now,
	}}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: registry is shutting down", shared.ErrServiceUnavailable)
	}
	r.jobs[e.job.ID] = e
	r.broadcast.Open(e.job.ID)
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Info("job submitted", "job_id", e.job.ID, "url", canonical)
	go r.drive(e)
	return e.job.ID, nil
}

// Get returns a snapshot of the job with the given ID.
func (r *Registry) Get(id string) (models.Job, bool) {
	e, ok := r.entry(id)
	if !ok {
		return models.Job{}, false
	}
	return e.snapshot(), true
}

// List returns snapshots of every known job, most recent first.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	jobs := make([]models.Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		jobs = append(jobs, e.snapshot())
	}
	r.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b models.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return jobs
}

// Subscribe registers o for the events of job id and replays its current state to o.
//
// It returns false, without invoking o, when the job is unknown.
func (r *Registry) Subscribe(id string, o Observer) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	return r.broadcast.Subscribe(id, o, func() models.Event {
		return replayEvent(e.snapshot(), r.now())
	})
}

// Unsubscribe removes o from job id. It is a no-op for unknown jobs or observers.
func (r *Registry) Unsubscribe(id string, o Observer) {
	r.broadcast.Unsubscribe(id, o)
}

// Broadcaster exposes the registry's event channels.
func (r *Registry) Broadcaster() *Broadcaster {
	return r.broadcast
}

// VideoInfo queries the download tool for url and infers tags from the result.
func (r *Registry) VideoInfo(ctx context.Context, url string) (*models.VideoSummary, error) {
	canonical, err := shared.ValidateSourceURL(url)
	if err != nil {
		return nil, err
	}

	info, err := r.deps.Downloader.FetchInfo(ctx, canonical)
	if err != nil {
		return nil, err
	}

	return &models.VideoSummary{
		Title:     info.Title,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
		Uploader:  info.UploaderName(),
		Metadata:  r.deps.Engine.Infer(info.Title, info.Description),
	}, nil
}

// Prune evicts terminal jobs that finished more than the retention window before now.
func (r *Registry) Prune(now time.Time) int {
	if r.opts.Retention <= 0 {
		return 0
	}
	cutoff := now.Add(-r.opts.Retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for id, e := range r.jobs {
		job := e.snapshot()
		if !job.State.Terminal() || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		delete(r.jobs, id)
		r.broadcast.Remove(id)
		pruned++
	}
	if pruned > 0 {
		r.logger.Debug("pruned jobs", "count", pruned)
	}
	return pruned
}

// Janitor prunes expired jobs periodically until ctx is done. It returns at once when retention is disabled.
func (r *Registry) Janitor(ctx context.Context) {
	if r.opts.Retention <= 0 {
		return
	}
	interval := min(max(r.opts.Retention/2, time.Second), 5*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.Prune(t)
		}
	}
}

// Wait blocks until every driving routine has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Close stops accepting jobs and waits for running ones until ctx is done.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for running jobs: %v", shared.ErrTimeout, ctx.Err())
	}
}

func (r *Registry) entry(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	return e, ok
}

// transition moves e to next and publishes the event built from the result as one step.
//
// Moves the state machine does not allow are dropped.
func (r *Registry) transition(e *entry, next models.State, mutate func(*models.Job), build func(models.Job, time.Time) models.Event) bool {
	moved := false
	r.broadcast.Apply(e.job.ID, func() (models.Event, bool) {
		e.mu.Lock()
		if !e.job.State.CanTransition(next) {
			e.mu.Unlock()
			return models.Event{}, false
		}
		e.job.State = next
		if mutate != nil {
			mutate(&e.job)
		}
		now := r.now()
		if next.Terminal() {
			e.job.FinishedAt = &now
		}
		e.mu.Unlock()

		moved = true
		return build(e.snapshot(), now), true
	})
	return moved
}

// progress records pct and publishes it while the job is running.
func (r *Registry) progress(e *entry, pct float64) {
	r.broadcast.Apply(e.job.ID, func() (models.Event, bool) {
		e.mu.Lock()
		if e.job.State != models.StateRunning {
			e.mu.Unlock()
			return models.Event{}, false
		}
		e.job.Progress = pct
		e.job.HasProgress = true
		e.mu.Unlock()
		return progressEvent(e.snapshot(), r.now()), true
	})
}

func (r *Registry) fail(e *entry, err error) {
	reason := failureReason(err)
	if r.transition(e, models.StateFailed, func(j *models.Job) { j.FailureReason = reason }, errorEvent) {
		r.logger.Error("job failed", "job_id", e.job.ID, "err", reason)
	}
}

// failureReason prefers the diagnostic stream of a failed tool over the wrapped error text.
func failureReason(err error) string {
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) || exitErr.Diagnostic() == "" {
		return err.Error()
	}
	var se *stepError
	if errors.As(err, &se) {
		return se.step + ": " + exitErr.Diagnostic()
	}
	return exitErr.Diagnostic()
}

// publishedFilename resolves the file a download produced for the sanitized prefix.
func (r *Registry) publishedFilename(prefix string) (string, error) {
	name, ok, err := services.FindOutput(r.opts.Dir, prefix+".")
	if err != nil {
		return "", err
	}
	if !ok {
		r.logger.Warn("output file not found, assuming default extension", "prefix", prefix, "ext", r.opts.DefaultExt)
		return prefix + r.opts.DefaultExt, nil
	}
	return name, nil
}

// outputPath returns the absolute location of filename in the download directory.
func (r *Registry) outputPath(filename string) string {
	return filepath.Join(r.opts.Dir, filename)
}

func (r *Registry) ensureDir() error {
	if err := os.MkdirAll(r.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	return nil
}
