package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

type fakeLister struct {
	playlist *models.Playlist
	err      error
}

func (f *fakeLister) Playlist(context.Context, string) (*models.Playlist, error) {
	return f.playlist, f.err
}

func testPlaylist() *models.Playlist {
	return &models.Playlist{
		Title: "Mix",
		Entries: []models.PlaylistEntry{
			{URL: "https://www.youtube.com/watch?v=a", Title: "A"},
			{URL: "", Title: "Broken"},
			{URL: "https://www.youtube.com/watch?v=c", Title: "C"},
		},
	}
}

func TestSubmitPlaylist_SubmitsEntries(t *testing.T) {
	env := newTestEnv(t, &fakeDownloader{}, RegistryOpts{})
	progressCh := make(chan ProgressUpdate, 100)

	result, err := env.reg.SubmitPlaylist(context.Background(), progressCh, &fakeLister{playlist: testPlaylist()}, "https://www.youtube.com/playlist?list=PL", BatchOpts{RateLimit: 1000, Wait: true})
	if err != nil {
		t.Fatalf("SubmitPlaylist() error = %v", err)
	}

	if result.Playlist != "Mix" || result.Total != 3 {
		t.Errorf("unexpected summary %+v", result)
	}
	if result.Submitted != 2 || result.Failed != 1 {
		t.Errorf("expected 2 submitted and 1 failed, got %d/%d", result.Submitted, result.Failed)
	}
	if !errors.Is(result.Items[1].Error, shared.ErrMissingArgument) {
		t.Errorf("expected missing URL error, got %v", result.Items[1].Error)
	}
	for _, i := range []int{0, 2} {
		item := result.Items[i]
		if item.Job == nil || item.Job.State != models.StateComplete {
			t.Errorf("item %d: expected completed job snapshot, got %+v", i, item.Job)
		}
	}
	close(progressCh)

	phases := map[Phase]int{}
	for u := range progressCh {
		phases[u.Phase]++
	}
	if phases[FetchPlaylist] != 2 || phases[SubmitEntries] != 3 || phases[AwaitJobs] != 2 {
		t.Errorf("unexpected progress phases %v", phases)
	}
}

func TestSubmitPlaylist_Limit(t *testing.T) {
	env := newTestEnv(t, &fakeDownloader{}, RegistryOpts{})

	result, err := env.reg.SubmitPlaylist(context.Background(), nil, &fakeLister{playlist: testPlaylist()}, "u", BatchOpts{RateLimit: 1000, Limit: 1})
	if err != nil {
		t.Fatalf("SubmitPlaylist() error = %v", err)
	}
	env.reg.Wait()
	if result.Total != 1 || len(result.Items) != 1 {
		t.Errorf("expected 1 entry, got %+v", result)
	}
	if result.Items[0].Job != nil {
		t.Error("expected no job snapshot without Wait")
	}
}

func TestSubmitPlaylist_ListerError(t *testing.T) {
	env := newTestEnv(t, &fakeDownloader{}, RegistryOpts{})

	_, err := env.reg.SubmitPlaylist(context.Background(), nil, &fakeLister{err: networkFailure()}, "u", BatchOpts{})
	if !errors.Is(err, shared.ErrToolFailed) {
		t.Errorf("expected ErrToolFailed, got %v", err)
	}

	_, err = env.reg.SubmitPlaylist(context.Background(), nil, nil, "u", BatchOpts{})
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestSubmitPlaylist_ContextCancellation(t *testing.T) {
	env := newTestEnv(t, &fakeDownloader{}, RegistryOpts{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.reg.SubmitPlaylist(ctx, nil, &fakeLister{playlist: testPlaylist()}, "u", BatchOpts{RateLimit: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.Submitted != 0 {
		t.Errorf("expected nothing submitted, got %+v", result)
	}
}

func TestPhase_String(t *testing.T) {
	for p, want := range map[Phase]string{FetchPlaylist: "fetch_playlist", SubmitEntries: "submit_entries", AwaitJobs: "await_jobs", Phase(99): ""} {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestSendProgress_NonBlocking(t *testing.T) {
	ch := make(chan ProgressUpdate)
	sendProgress(ch, ProgressUpdate{Message: "dropped"})
	sendProgress(nil, ProgressUpdate{Message: "ignored"})
}
