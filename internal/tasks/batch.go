package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for playlist submissions.
type BatchOpts struct {
	RateLimit float64 // Submissions per second (default: 1)
	Limit     int     // Maximum entries to submit; 0 submits all
	Wait      bool    // Block until every submitted job is terminal
}

// BatchItem is the outcome of submitting one playlist entry.
type BatchItem struct {
	Entry models.PlaylistEntry
	JobID string
	Job   *models.Job // Final job snapshot, set when waiting
	Error error
}

// BatchResult summarizes a playlist submission.
type BatchResult struct {
	Playlist  string
	Total     int // Entries considered after Limit
	Submitted int
	Failed    int // Entries rejected at submission plus jobs that ended failed
	Items     []BatchItem
}

// SubmitPlaylist lists the entries of a playlist and submits each one as a job, paced by a rate limiter.
//
// Entries that cannot be submitted are recorded in the result rather than aborting the batch.
func (r *Registry) SubmitPlaylist(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	lister services.PlaylistLister,
	url string,
	opts BatchOpts,
) (*BatchResult, error) {
	if lister == nil {
		return nil, fmt.Errorf("%w: playlist lister not initialized", shared.ErrServiceUnavailable)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	sendProgress(prog, fetchingPlaylistUpdate(url))
	pl, err := lister.Playlist(ctx, url)
	if err != nil {
		return nil, err
	}

	entries := pl.Entries
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	sendProgress(prog, foundPlaylistUpdate(pl, len(entries)))

	result := &BatchResult{
		Playlist: pl.Title,
		Total:    len(entries),
		Items:    make([]BatchItem, 0, len(entries)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	for i, en := range entries {
		if err := limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("playlist submission interrupted: %w", err)
		}

		item := BatchItem{Entry: en}
		item.JobID, item.Error = r.Submit(en.URL)
		if item.Error != nil {
			result.Failed++
			sendProgress(prog, submitFailedUpdate(i+1, len(entries), en, item.Error))
		} else {
			result.Submitted++
			sendProgress(prog, submittedUpdate(i+1, len(entries), en, item.JobID))
		}
		result.Items = append(result.Items, item)
	}

	if opts.Wait {
		if err := r.awaitBatch(ctx, prog, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// awaitBatch blocks until every submitted job in result is terminal and stores the final snapshots.
func (r *Registry) awaitBatch(ctx context.Context, prog chan<- ProgressUpdate, result *BatchResult) error {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		finished int
	)

	for i := range result.Items {
		item := &result.Items[i]
		if item.Error != nil {
			continue
		}

		done := make(chan struct{})
		var once sync.Once
		obs := ObserverFunc(func(e models.Event) {
			if e.Terminal() {
				once.Do(func() { close(done) })
			}
		})
		if !r.Subscribe(item.JobID, obs) {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.Unsubscribe(item.JobID, obs)

			select {
			case <-done:
			case <-ctx.Done():
				return
			}

			job, ok := r.Get(item.JobID)
			if !ok {
				return
			}
			mu.Lock()
			item.Job = &job
			if job.State == models.StateFailed {
				result.Failed++
			}
			finished++
			sendProgress(prog, jobFinishedUpdate(finished, result.Submitted, job))
			mu.Unlock()
		}()
	}

	wg.Wait()
	return ctx.Err()
}
