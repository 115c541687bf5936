package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

// keepAliveInterval spaces the comment frames sent while a job is quiet.
const keepAliveInterval = 15 * time.Second

// eventQueue buffers events between the broadcaster and the response writer so that Notify never blocks.
type eventQueue struct {
	mu      sync.Mutex
	pending []models.Event
	signal  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) Notify(e models.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []models.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// ProgressHandler streams job events as server-sent events.
//
// The stream opens with a replay of the job's current state and ends after a complete or error event.
// A client that goes away is unsubscribed; the job itself keeps running.
type ProgressHandler struct {
	jobs      JobRegistry
	keepAlive time.Duration
	logger    *log.Logger
}

// NewProgressHandler creates a [ProgressHandler] over jobs.
func NewProgressHandler(jobs JobRegistry, logger *log.Logger) *ProgressHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProgressHandler{jobs: jobs, keepAlive: keepAliveInterval, logger: logger}
}

// Routes implements [Handler].
func (h *ProgressHandler) Routes() []string {
	return []string{"GET /api/download/{jobId}/progress"}
}

// ServeHTTP implements [http.Handler].
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("jobId")
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	q := newEventQueue()
	if !h.jobs.Subscribe(id, q) {
		h.send(w, rc, map[string]string{"type": string(models.EventError), "error": "Job not found"})
		return
	}
	defer h.jobs.Unsubscribe(id, q)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		for _, e := range q.drain() {
			if err := h.send(w, rc, e); err != nil {
				h.logger.Debug("progress stream closed", "job_id", id, "err", err)
				return
			}
			if e.Terminal() {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-q.signal:
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			rc.Flush()
		}
	}
}

func (h *ProgressHandler) send(w http.ResponseWriter, rc *http.ResponseController, payload any) error {
	data, err := shared.MarshalJSON(payload, false)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
