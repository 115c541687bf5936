package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/tasks"
)

type fakeJobs struct {
	mu           sync.Mutex
	next         int
	rejected     map[string]error
	subscribed   []string
	unsubscribed []string
}

func (f *fakeJobs) Submit(url string) (string, error) {
	if err := f.rejected[url]; err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return "job-" + string(rune('0'+f.next)), nil
}

func (f *fakeJobs) Subscribe(id string, _ tasks.Observer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, id)
	return true
}

func (f *fakeJobs) Unsubscribe(id string, _ tasks.Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, id)
}

type fakeLibrary struct {
	files []models.LibraryFile
	err   error
}

func (f *fakeLibrary) List(context.Context) ([]models.LibraryFile, error) {
	return f.files, f.err
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := m.Update(msg)
	if next != m {
		t.Fatal("expected Update to return the same model")
	}
	return cmd
}

func TestGrabModel(t *testing.T) {
	t.Run("Submits And Subscribes", func(t *testing.T) {
		jobs := &fakeJobs{}
		m := NewGrabModel(context.Background(), jobs, nil, []string{"https://youtu.be/a", "https://youtu.be/b"})

		msg := m.Init()()
		got, ok := msg.(Msg)
		if !ok || got.kind != MsgJobsSubmitted {
			t.Fatalf("expected jobs submitted message, got %#v", msg)
		}
		if len(jobs.subscribed) != 2 {
			t.Errorf("expected 2 subscriptions, got %v", jobs.subscribed)
		}

		if cmd := update(t, m, got); cmd == nil {
			t.Error("expected a command waiting for events")
		}
		if m.view != GrabView || len(m.rows) != 2 {
			t.Errorf("expected 2 rows in grab view, got view %d rows %d", m.view, len(m.rows))
		}
	})

	t.Run("Follows Events To Result", func(t *testing.T) {
		m := NewGrabModel(context.Background(), &fakeJobs{}, nil, []string{"a", "b"})
		update(t, m, jobsSubmittedMsg([]submission{{url: "a", id: "1"}, {url: "b", id: "2"}}))

		update(t, m, jobEventMsg(models.Event{Type: models.EventStatus, JobID: "1", Status: models.StateRunning}))
		update(t, m, jobEventMsg(models.Event{Type: models.EventProgress, JobID: "1", Progress: 40}))
		update(t, m, jobEventMsg(models.Event{Type: models.EventProgress, JobID: "1", Progress: 20}))
		if m.rows[0].progress != 40 {
			t.Errorf("expected progress to stay at 40, got %v", m.rows[0].progress)
		}
		if !strings.Contains(m.View(), "40.0%") {
			t.Errorf("expected percentage in view, got %q", m.View())
		}

		update(t, m, jobEventMsg(models.Event{Type: models.EventComplete, JobID: "1", Filename: "A.m4a"}))
		if m.Finished() {
			t.Fatal("expected job 2 to still be pending")
		}

		if cmd := update(t, m, jobEventMsg(models.Event{Type: models.EventError, JobID: "2", Error: "download failed: ERROR: network error"})); cmd != nil {
			t.Error("expected no further commands once every job is done")
		}
		if m.view != ResultView {
			t.Fatalf("expected result view, got %d", m.view)
		}
		if m.Failed() != 1 {
			t.Errorf("expected 1 failure, got %d", m.Failed())
		}

		view := m.View()
		for _, want := range []string{"A.m4a", "network error", "Downloaded 1 of 2"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in result view, got %q", want, view)
			}
		}
	})

	t.Run("Rejected Submissions", func(t *testing.T) {
		jobs := &fakeJobs{rejected: map[string]error{"nope": errors.New("invalid input: nope")}}
		m := NewGrabModel(context.Background(), jobs, nil, []string{"nope"})

		update(t, m, m.Init()())
		if m.view != ResultView || m.Failed() != 1 {
			t.Errorf("expected immediate result with 1 failure, got view %d failed %d", m.view, m.Failed())
		}
		if !strings.Contains(m.View(), "invalid input") {
			t.Errorf("expected rejection reason in view, got %q", m.View())
		}
	})

	t.Run("Events For Finished Jobs Ignored", func(t *testing.T) {
		m := NewGrabModel(context.Background(), &fakeJobs{}, nil, []string{"a", "b"})
		update(t, m, jobsSubmittedMsg([]submission{{url: "a", id: "1"}, {url: "b", id: "2"}}))
		update(t, m, jobEventMsg(models.Event{Type: models.EventComplete, JobID: "1", Filename: "A.m4a"}))
		update(t, m, jobEventMsg(models.Event{Type: models.EventError, JobID: "1", Error: "late"}))

		if m.rows[0].state != models.StateComplete {
			t.Errorf("expected job to stay complete, got %s", m.rows[0].state)
		}
	})

	t.Run("Quit Unsubscribes", func(t *testing.T) {
		jobs := &fakeJobs{}
		m := NewGrabModel(context.Background(), jobs, nil, []string{"a"})
		update(t, m, jobsSubmittedMsg([]submission{{url: "a", id: "1"}}))

		cmd := update(t, m, keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected quit message")
		}
		if len(jobs.unsubscribed) != 1 || jobs.unsubscribed[0] != "1" {
			t.Errorf("expected unsubscribe for job 1, got %v", jobs.unsubscribed)
		}
	})

	t.Run("Result To Library", func(t *testing.T) {
		lib := &fakeLibrary{files: []models.LibraryFile{{Filename: "A.m4a"}}}
		m := NewGrabModel(context.Background(), &fakeJobs{}, lib, []string{"a"})
		update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
		update(t, m, jobsSubmittedMsg([]submission{{url: "a", id: "1"}}))
		update(t, m, jobEventMsg(models.Event{Type: models.EventComplete, JobID: "1", Filename: "A.m4a"}))

		cmd := update(t, m, keyPress("l"))
		if m.view != LibraryView || cmd == nil {
			t.Fatalf("expected library view with a list command, got view %d", m.view)
		}
		update(t, m, cmd())
		if !strings.Contains(m.View(), "A.m4a") {
			t.Errorf("expected file in library view, got %q", m.View())
		}
	})
}

func TestLibraryModel(t *testing.T) {
	files := []models.LibraryFile{
		{
			Filename: "Boygenius - Emily I'm Sorry.m4a",
			Size:     3 << 20,
			Date:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Metadata: models.Tags{Title: "Emily I'm Sorry", Artist: "Boygenius", Album: "the record", Date: "2023", Duration: 185},
		},
	}

	t.Run("Lists And Shows Tags", func(t *testing.T) {
		m := NewLibraryModel(context.Background(), &fakeLibrary{files: files})
		if !strings.Contains(m.View(), "Loading") {
			t.Errorf("expected loading view, got %q", m.View())
		}

		update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
		update(t, m, m.Init()())
		if !strings.Contains(m.View(), "Emily I'm Sorry") {
			t.Errorf("expected file title in list, got %q", m.View())
		}

		update(t, m, keyPress("enter"))
		if m.view != TagsView {
			t.Fatalf("expected tags view, got %d", m.view)
		}
		view := m.View()
		for _, want := range []string{"Boygenius", "the record", "2023", "3:05"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in tags view, got %q", want, view)
			}
		}

		update(t, m, keyPress("esc"))
		if m.view != LibraryView {
			t.Errorf("expected to return to library view, got %d", m.view)
		}
	})

	t.Run("List Error", func(t *testing.T) {
		lib := &fakeLibrary{err: errors.New("permission denied")}
		m := NewLibraryModel(context.Background(), lib)
		update(t, m, m.Init()())
		if !strings.Contains(m.View(), "permission denied") {
			t.Errorf("expected error in view, got %q", m.View())
		}

		lib.err = nil
		lib.files = files
		cmd := update(t, m, keyPress("r"))
		if cmd == nil {
			t.Fatal("expected refresh command")
		}
		update(t, m, cmd())
		if m.err != nil || !m.loaded {
			t.Errorf("expected refresh to clear the error, got %v", m.err)
		}
	})
}

func TestChanObserver(t *testing.T) {
	done := make(chan struct{})
	o := &chanObserver{ch: make(chan models.Event, 1), done: done}

	o.Notify(models.Event{Type: models.EventProgress, Progress: 10})
	o.Notify(models.Event{Type: models.EventProgress, Progress: 20})
	if e := <-o.ch; e.Progress != 10 {
		t.Errorf("expected first progress event to be kept, got %v", e.Progress)
	}
	select {
	case e := <-o.ch:
		t.Errorf("expected overflow progress event to be dropped, got %+v", e)
	default:
	}

	o.Notify(models.Event{Type: models.EventProgress, Progress: 30})
	close(done)
	finished := make(chan struct{})
	go func() {
		o.Notify(models.Event{Type: models.EventComplete})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("terminal notify blocked after done closed")
	}
}
