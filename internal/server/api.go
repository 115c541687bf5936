package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/metadata"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// JobRegistry is the job surface the HTTP layer consumes. [tasks.Registry] implements it.
type JobRegistry interface {
	Submit(url string) (string, error)
	Get(id string) (models.Job, bool)
	List() []models.Job
	VideoInfo(ctx context.Context, url string) (*models.VideoSummary, error)
	Subscribe(id string, o tasks.Observer) bool
	Unsubscribe(id string, o tasks.Observer)
	SubmitPlaylist(ctx context.Context, prog chan<- tasks.ProgressUpdate, lister services.PlaylistLister, url string, opts tasks.BatchOpts) (*tasks.BatchResult, error)
}

// Library is the downloads directory surface. [services.Library] implements it.
type Library interface {
	List(ctx context.Context) ([]models.LibraryFile, error)
	ReadTags(ctx context.Context, filename string) (models.Tags, error)
	WriteTags(ctx context.Context, filename string, tags models.Tags) error
	Artwork(ctx context.Context, filename string) ([]byte, string, error)
	SetArtwork(ctx context.Context, filename string, image []byte) error
}

// ThumbnailSearcher resolves a thumbnail URL from a video URL or search query.
type ThumbnailSearcher interface {
	SearchThumbnail(ctx context.Context, query string) (string, error)
}

// APIDeps are the collaborators behind the JSON routes. History, Playlists, Artwork and Thumbnails are optional.
type APIDeps struct {
	Jobs       JobRegistry
	Library    Library
	History    models.HistoryRepository
	Playlists  services.PlaylistLister
	Artwork    services.ArtworkFetcher
	Thumbnails ThumbnailSearcher
	Engine     *metadata.Engine
}

// API serves the JSON routes of the web service.
type API struct {
	deps    APIDeps
	limiter *RateLimiter
	logger  *log.Logger
}

// NewAPI creates an [API]. limiter guards the routes that start jobs and may be nil.
func NewAPI(deps APIDeps, limiter *RateLimiter, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if deps.Engine == nil {
		deps.Engine = metadata.NewEngine()
	}
	return &API{deps: deps, limiter: limiter, logger: shared.WithLogger(logger, "component", "api")}
}

// Register adds every route to r, including the progress stream.
func (a *API) Register(r Router) {
	limited := func(h http.HandlerFunc) http.Handler {
		if a.limiter == nil {
			return h
		}
		return a.limiter.Middleware()(h)
	}

	r.Handle(http.MethodGet, "/api/health", http.HandlerFunc(a.health))
	r.Handle(http.MethodGet, "/api/video-info", http.HandlerFunc(a.videoInfo))
	r.Handle(http.MethodGet, "/api/infer", http.HandlerFunc(a.infer))
	r.Handle(http.MethodPost, "/api/download", limited(a.submit))
	r.Handle(http.MethodGet, "/api/jobs", http.HandlerFunc(a.listJobs))
	r.Handle(http.MethodGet, "/api/jobs/{jobId}", http.HandlerFunc(a.getJob))
	r.Handle(http.MethodGet, "/api/playlist", http.HandlerFunc(a.playlist))
	r.Handle(http.MethodPost, "/api/playlist", limited(a.submitPlaylist))
	r.Handle(http.MethodGet, "/api/downloads", http.HandlerFunc(a.listDownloads))
	r.Handle(http.MethodGet, "/api/downloads/{filename}/metadata", http.HandlerFunc(a.readMetadata))
	r.Handle(http.MethodPut, "/api/metadata/{filename}", http.HandlerFunc(a.writeMetadata))
	r.Handle(http.MethodGet, "/api/downloads/{filename}/artwork", http.HandlerFunc(a.readArtwork))
	r.Handle(http.MethodPut, "/api/downloads/{filename}/artwork", http.HandlerFunc(a.writeArtwork))
	r.Handle(http.MethodGet, "/api/history", http.HandlerFunc(a.history))
	r.Handler(NewProgressHandler(a.deps.Jobs, a.logger))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) videoInfo(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}

	info, err := a.deps.Jobs.VideoInfo(r.Context(), url)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) infer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, a.deps.Engine.Infer(q.Get("title"), q.Get("description")))
}

type submitRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit,omitempty"`
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required in body")
		return
	}

	id, err := a.deps.Jobs.Submit(req.URL)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"jobId": id})
}

func (a *API) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.deps.Jobs.List())
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := a.deps.Jobs.Get(r.PathValue("jobId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) playlist(w http.ResponseWriter, r *http.Request) {
	if a.deps.Playlists == nil {
		a.fail(w, shared.ErrServiceUnavailable)
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}

	pl, err := a.deps.Playlists.Playlist(r.Context(), url)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

type batchItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	JobID string `json:"jobId,omitempty"`
	Error string `json:"error,omitempty"`
}

type batchResponse struct {
	Playlist  string      `json:"playlist"`
	Total     int         `json:"total"`
	Submitted int         `json:"submitted"`
	Failed    int         `json:"failed"`
	Jobs      []batchItem `json:"jobs"`
}

func (a *API) submitPlaylist(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required in body")
		return
	}
	if a.deps.Playlists == nil {
		a.fail(w, shared.ErrServiceUnavailable)
		return
	}

	res, err := a.deps.Jobs.SubmitPlaylist(r.Context(), nil, a.deps.Playlists, req.URL, tasks.BatchOpts{RateLimit: 5, Limit: req.Limit})
	if err != nil && res == nil {
		a.fail(w, err)
		return
	}

	body := batchResponse{Jobs: []batchItem{}}
	if res != nil {
		body.Playlist, body.Total, body.Submitted, body.Failed = res.Playlist, res.Total, res.Submitted, res.Failed
		for _, item := range res.Items {
			bi := batchItem{URL: item.Entry.URL, Title: item.Entry.Title, JobID: item.JobID}
			if item.Error != nil {
				bi.Error = item.Error.Error()
			}
			body.Jobs = append(body.Jobs, bi)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) listDownloads(w http.ResponseWriter, r *http.Request) {
	files, err := a.deps.Library.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (a *API) readMetadata(w http.ResponseWriter, r *http.Request) {
	tags, err := a.deps.Library.ReadTags(r.Context(), r.PathValue("filename"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (a *API) writeMetadata(w http.ResponseWriter, r *http.Request) {
	var tags models.Tags
	if !decodeJSON(w, r, &tags) {
		return
	}
	tags.Duration = 0

	if err := a.deps.Library.WriteTags(r.Context(), r.PathValue("filename"), tags); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) readArtwork(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := a.deps.Library.Artwork(r.Context(), r.PathValue("filename"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no artwork")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type artworkRequest struct {
	URL   string `json:"url,omitempty"`
	Query string `json:"query,omitempty"`
}

// writeArtwork attaches artwork from an image URL, or from the thumbnail of the first search hit for query.
func (a *API) writeArtwork(w http.ResponseWriter, r *http.Request) {
	var req artworkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.deps.Artwork == nil {
		a.fail(w, shared.ErrServiceUnavailable)
		return
	}

	imageURL := req.URL
	if imageURL == "" {
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "url or query is required in body")
			return
		}
		if a.deps.Thumbnails == nil {
			a.fail(w, shared.ErrServiceUnavailable)
			return
		}
		found, err := a.deps.Thumbnails.SearchThumbnail(r.Context(), req.Query)
		if err != nil {
			a.fail(w, err)
			return
		}
		imageURL = found
	}

	image, err := a.deps.Artwork.Fetch(r.Context(), imageURL)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.deps.Library.SetArtwork(r.Context(), r.PathValue("filename"), image); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "artwork": imageURL})
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	if a.deps.History == nil {
		writeJSON(w, http.StatusOK, []*models.HistoryEntry{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := a.deps.History.List(limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// fail maps err onto a status code and writes it as a JSON error.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrUnsupportedFile):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrJobNotFound),
		errors.Is(err, shared.ErrFileNotFound),
		errors.Is(err, shared.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrToolFailed),
		errors.Is(err, shared.ErrToolOutput),
		errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := shared.MarshalJSON(payload, false)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
