package tasks

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	tu "github.com/desertthunder/audiograb/internal/testing"
)

type fakeDownloader struct {
	info        *models.VideoInfo
	infoErr     error
	progress    []float64
	downloadErr error
	noOutput    bool
	ext         string
	gate        chan struct{} // when set, Download blocks after the first progress line until closed
	started     chan struct{} // closed once the first progress line has been reported
	startOnce   sync.Once

	mu       sync.Mutex
	requests []services.DownloadRequest
}

func (f *fakeDownloader) FetchInfo(_ context.Context, url string) (*models.VideoInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := *f.info
	if info.WebpageURL == "" {
		info.WebpageURL = url
	}
	return &info, nil
}

func (f *fakeDownloader) Download(_ context.Context, req services.DownloadRequest, onProgress func(float64)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	for i, pct := range f.progress {
		onProgress(pct)
		if i == 0 {
			if f.started != nil {
				f.startOnce.Do(func() { close(f.started) })
			}
			if f.gate != nil {
				<-f.gate
			}
		}
	}
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if f.noOutput {
		return nil
	}
	ext := f.ext
	if ext == "" {
		ext = "m4a"
	}
	return os.WriteFile(strings.Replace(req.OutputTemplate, "%(ext)s", ext, 1), []byte("audio"), 0644)
}

type tagCall struct {
	path string
	tags models.Tags
}

type fakeTagger struct {
	mu       sync.Mutex
	writes   []tagCall
	embeds   []string
	writeErr error
	embedErr error
	panicMsg string
}

func (f *fakeTagger) WriteTags(_ context.Context, path string, tags models.Tags) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, tagCall{path: path, tags: tags})
	return f.writeErr
}

func (f *fakeTagger) EmbedArtwork(_ context.Context, path string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, path)
	return f.embedErr
}

type fakeArtwork struct {
	err error
}

func (f *fakeArtwork) Fetch(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg"), nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*models.HistoryEntry
}

func (f *fakeHistory) Create(e *models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) Get(string) (*models.HistoryEntry, error) { return nil, shared.ErrFileNotFound }

func (f *fakeHistory) GetByJobID(string) (*models.HistoryEntry, error) {
	return nil, shared.ErrFileNotFound
}

func (f *fakeHistory) List(int) ([]*models.HistoryEntry, error) { return f.entries, nil }

func (f *fakeHistory) Delete(string) error { return nil }

// recorder collects the events delivered to one observer.
type recorder struct {
	mu     sync.Mutex
	events []models.Event
	Observer
}

func newRecorder() *recorder {
	r := &recorder{}
	r.Observer = ObserverFunc(func(e models.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

func (r *recorder) count(t models.EventType) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testEnv struct {
	reg     *Registry
	dl      *fakeDownloader
	tagger  *fakeTagger
	history *fakeHistory
	dir     string
}

func newTestEnv(t *testing.T, dl *fakeDownloader, opts RegistryOpts) *testEnv {
	t.Helper()
	if dl.info == nil {
		dl.info = &models.VideoInfo{
			ID:          "abc123",
			Title:       "Boygenius - Emily I'm Sorry",
			Duration:    189,
			Thumbnail:   "https://i.ytimg.com/vi/abc123/maxresdefault.jpg",
			Uploader:    "boygenius",
			Description: "Album: the record\nReleased: 2023",
		}
	}
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}

	env := &testEnv{dl: dl, tagger: &fakeTagger{}, history: &fakeHistory{}, dir: opts.Dir}
	env.reg = NewRegistry(RegistryDeps{
		Downloader: dl,
		Tagger:     env.tagger,
		Artwork:    &fakeArtwork{},
		History:    env.history,
	}, opts, tu.QuietLogger())
	t.Cleanup(env.reg.Wait)
	return env
}

// networkFailure simulates yt-dlp exiting 1 with a diagnostic.
func networkFailure() error {
	res := process.Result{
		Invocation: process.Invocation{Executable: "yt-dlp"},
		Stderr:     []byte("ERROR: network error\n"),
		ExitCode:   1,
	}
	return process.NewExitError(res)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

var errBoom = errors.New("boom")
