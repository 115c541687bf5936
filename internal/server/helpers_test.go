package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
	tu "github.com/desertthunder/audiograb/internal/testing"
)

// fakeJobs is a [JobRegistry] backed by a real broadcaster.
type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]models.Job
	submitted []string
	submitErr error
	info      *models.VideoSummary
	infoErr   error
	batch     *tasks.BatchResult
	batchErr  error
	broadcast *tasks.Broadcaster
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]models.Job), broadcast: tasks.NewBroadcaster(tu.QuietLogger())}
}

func (f *fakeJobs) add(job models.Job) {
	f.mu.Lock()
	f.jobs[job.ID] = job
	f.mu.Unlock()
	f.broadcast.Open(job.ID)
}

func (f *fakeJobs) Submit(url string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, url)
	return "job-" + url, nil
}

func (f *fakeJobs) Get(id string) (models.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	return job, ok
}

func (f *fakeJobs) List() []models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out
}

func (f *fakeJobs) VideoInfo(_ context.Context, _ string) (*models.VideoSummary, error) {
	return f.info, f.infoErr
}

func (f *fakeJobs) Subscribe(id string, o tasks.Observer) bool {
	job, ok := f.Get(id)
	if !ok {
		return false
	}
	return f.broadcast.Subscribe(id, o, func() models.Event {
		switch job.State {
		case models.StateComplete:
			return models.Event{Type: models.EventComplete, JobID: id, Progress: 100, Filename: job.Filename}
		case models.StateFailed:
			return models.Event{Type: models.EventError, JobID: id, Error: job.FailureReason}
		default:
			return models.Event{Type: models.EventProgress, JobID: id, Progress: job.Progress}
		}
	})
}

func (f *fakeJobs) Unsubscribe(id string, o tasks.Observer) {
	f.broadcast.Unsubscribe(id, o)
}

func (f *fakeJobs) SubmitPlaylist(_ context.Context, _ chan<- tasks.ProgressUpdate, _ services.PlaylistLister, _ string, _ tasks.BatchOpts) (*tasks.BatchResult, error) {
	return f.batch, f.batchErr
}

// fakeTags is a [services.TagEditor] keyed by file path.
type fakeTags struct {
	mu      sync.Mutex
	tags    map[string]models.Tags
	artwork map[string][]byte
}

func newFakeTags() *fakeTags {
	return &fakeTags{tags: make(map[string]models.Tags), artwork: make(map[string][]byte)}
}

func (f *fakeTags) ReadTags(_ context.Context, path string) (models.Tags, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[path], nil
}

func (f *fakeTags) WriteTags(_ context.Context, path string, tags models.Tags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[path] = tags
	return nil
}

func (f *fakeTags) EmbedArtwork(_ context.Context, path string, image []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artwork[path] = image
	return nil
}

func (f *fakeTags) ExtractArtwork(_ context.Context, path string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.artwork[path]
	if !ok {
		return nil, "", nil
	}
	return data, "image/jpeg", nil
}

type fakeLister struct {
	playlist *models.Playlist
	err      error
}

func (f *fakeLister) Playlist(_ context.Context, _ string) (*models.Playlist, error) {
	return f.playlist, f.err
}

type fakeArtwork struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeArtwork) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type fakeThumbnails struct {
	url string
	err error
}

func (f *fakeThumbnails) SearchThumbnail(_ context.Context, _ string) (string, error) {
	return f.url, f.err
}

type fakeHistory struct {
	entries []*models.HistoryEntry
	limit   int
}

func (f *fakeHistory) Create(entry *models.HistoryEntry) error { return nil }
func (f *fakeHistory) Get(id string) (*models.HistoryEntry, error) {
	return nil, shared.ErrRecordNotFound
}
func (f *fakeHistory) GetByJobID(jobID string) (*models.HistoryEntry, error) {
	return nil, shared.ErrRecordNotFound
}
func (f *fakeHistory) List(limit int) ([]*models.HistoryEntry, error) {
	f.limit = limit
	return f.entries, nil
}
func (f *fakeHistory) Delete(id string) error { return nil }

type testEnv struct {
	jobs    *fakeJobs
	tags    *fakeTags
	dir     string
	lister  *fakeLister
	artwork *fakeArtwork
	thumbs  *fakeThumbnails
	history *fakeHistory
	router  *BasicRouter
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	env := &testEnv{
		jobs:    newFakeJobs(),
		tags:    newFakeTags(),
		dir:     t.TempDir(),
		lister:  &fakeLister{},
		artwork: &fakeArtwork{},
		thumbs:  &fakeThumbnails{},
		history: &fakeHistory{},
		router:  NewBasicRouter(),
	}
	logger := tu.QuietLogger()
	api := NewAPI(APIDeps{
		Jobs:       env.jobs,
		Library:    services.NewLibrary(env.dir, env.tags, logger),
		History:    env.history,
		Playlists:  env.lister,
		Artwork:    env.artwork,
		Thumbnails: env.thumbs,
	}, limiter, logger)
	api.Register(env.router)
	return env
}

func (env *testEnv) addFile(t *testing.T, name string, tags models.Tags) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	tu.MustWriteFile(t, path, "audio")
	env.tags.tags[path] = tags
	return path
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var errBoom = errors.New("boom")
