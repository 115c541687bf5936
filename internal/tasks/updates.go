package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
)

// ProgressUpdate represents a progress event during a batch operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	SubmitEntries
	AwaitJobs
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case SubmitEntries:
		return "submit_entries"
	case AwaitJobs:
		return "await_jobs"
	default:
		return ""
	}
}

// sendProgress sends update without blocking; updates are dropped when nobody is reading.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingPlaylistUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", url),
	}
}

func foundPlaylistUpdate(pl *models.Playlist, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d entries)", pl.Title, total),
		Data:    pl,
	}
}

func submittedUpdate(step, total int, entry models.PlaylistEntry, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Queued: %s", step, total, entry.Title),
		Data:    id,
	}
}

func submitFailedUpdate(step, total int, entry models.PlaylistEntry, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, entry.Title, err),
	}
}

func jobFinishedUpdate(step, total int, job models.Job) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, job.Filename)
	if job.State == models.StateFailed {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, job.SourceURL, job.FailureReason)
	}
	return ProgressUpdate{
		Phase:   AwaitJobs,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    job,
	}
}

func statusEvent(job models.Job, at time.Time) models.Event {
	return models.Event{Type: models.EventStatus, JobID: job.ID, Status: job.State, Progress: job.Progress, Timestamp: at}
}

func progressEvent(job models.Job, at time.Time) models.Event {
	return models.Event{Type: models.EventProgress, JobID: job.ID, Status: job.State, Progress: job.Progress, Timestamp: at}
}

func completeEvent(job models.Job, at time.Time) models.Event {
	return models.Event{
		Type:      models.EventComplete,
		JobID:     job.ID,
		Status:    job.State,
		Progress:  100,
		Filename:  job.Filename,
		Metadata:  job.Metadata,
		Timestamp: at,
	}
}

func errorEvent(job models.Job, at time.Time) models.Event {
	return models.Event{
		Type:      models.EventError,
		JobID:     job.ID,
		Status:    job.State,
		Progress:  job.Progress,
		Error:     job.FailureReason,
		Timestamp: at,
	}
}

// replayEvent reflects the current state of job for a new subscriber.
func replayEvent(job models.Job, at time.Time) models.Event {
	switch job.State {
	case models.StateComplete:
		return completeEvent(job, at)
	case models.StateFailed:
		return errorEvent(job, at)
	default:
		return progressEvent(job, at)
	}
}
