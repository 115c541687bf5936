// package models defines the data model for the audio grabbing service
package models

import (
	"time"
)

// State is the lifecycle position of a [Job].
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StatePending:
		return next == StateRunning || next == StateFailed
	case StateRunning:
		return next == StateComplete || next == StateFailed
	default:
		return false
	}
}

// Job is a point-in-time copy of a job record.
type Job struct {
	ID            string     `json:"id"`
	SourceURL     string     `json:"sourceUrl"`
	State         State      `json:"state"`
	Progress      float64    `json:"progress"`
	HasProgress   bool       `json:"hasProgress"`
	Title         string     `json:"title,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	Metadata      *Inferred  `json:"metadata,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// EventType classifies notifications published for a job.
type EventType string

const (
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is delivered to every observer of a job. Complete and error events are always the last.
type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"jobId,omitempty"`
	Status    State     `json:"status,omitempty"`
	Progress  float64   `json:"progress"`
	Filename  string    `json:"filename,omitempty"`
	Metadata  *Inferred `json:"metadata,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether e ends the stream for its job.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Inferred is best-effort metadata guessed from free text. Empty fields mean no signal was found.
type Inferred struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseYear string `json:"releaseYear"`
}

// Tags converts the inferred values into container tags.
func (i Inferred) Tags() Tags {
	return Tags{Title: i.Title, Artist: i.Artist, Album: i.Album, Date: i.ReleaseYear}
}

// Tags are the metadata fields written into and read from an audio container.
type Tags struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Date     string `json:"date"`
	Duration int    `json:"duration,omitempty"` // seconds, read-only
}

// VideoInfo is the subset of a yt-dlp --dump-json record the service relies on.
type VideoInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Description string  `json:"description"`
	UploadDate  string  `json:"upload_date"`
	WebpageURL  string  `json:"webpage_url"`
	Extension   string  `json:"ext"`
}

// UploaderName prefers the uploader and falls back to the channel.
func (v VideoInfo) UploaderName() string {
	if v.Uploader != "" {
		return v.Uploader
	}
	return v.Channel
}

// VideoSummary answers a video-info lookup.
type VideoSummary struct {
	Title     string   `json:"title"`
	Duration  float64  `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
	Uploader  string   `json:"uploader"`
	Metadata  Inferred `json:"metadata"`
}

// PlaylistEntry is one item of a flat playlist listing.
type PlaylistEntry struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail,omitempty"`
}

// Playlist is a flat listing of a playlist URL.
type Playlist struct {
	Title   string          `json:"title"`
	Entries []PlaylistEntry `json:"entries"`
}

// LibraryFile is an audio file found in the downloads directory.
type LibraryFile struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Date     time.Time `json:"date"`
	Metadata Tags      `json:"metadata"`
}

// HistoryEntry records one completed download.
type HistoryEntry struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	SourceURL   string    `json:"sourceUrl"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	ReleaseYear string    `json:"releaseYear"`
	Duration    int       `json:"duration"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryRepository persists finished downloads.
type HistoryRepository interface {
	Create(entry *HistoryEntry) error               // Create inserts entry, assigning ID and CreatedAt when unset
	Get(id string) (*HistoryEntry, error)           // Get retrieves an entry by its ID
	GetByJobID(jobID string) (*HistoryEntry, error) // GetByJobID retrieves the entry written for a job
	List(limit int) ([]*HistoryEntry, error)        // List returns entries newest first; limit <= 0 means all
	Delete(id string) error                         // Delete soft-deletes an entry
}
