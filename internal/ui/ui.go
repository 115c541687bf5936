package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
)

// eventBuffer is how many events may wait for the view before progress events are dropped.
const eventBuffer = 256

// ViewState represents the current view in the TUI.
type ViewState int

const (
	GrabView ViewState = iota
	ResultView
	LibraryView
	TagsView
)

// Jobs is the job surface the grab view drives. [tasks.Registry] implements it.
type Jobs interface {
	Submit(url string) (string, error)
	Subscribe(id string, o tasks.Observer) bool
	Unsubscribe(id string, o tasks.Observer)
}

// Library lists downloaded files. [services.Library] implements it.
type Library interface {
	List(ctx context.Context) ([]models.LibraryFile, error)
}

// chanObserver forwards job events into a channel read by the view.
//
// Progress events are dropped when the buffer is full. Status and terminal events wait for room until done closes.
type chanObserver struct {
	ch   chan models.Event
	done <-chan struct{}
}

func (o *chanObserver) Notify(e models.Event) {
	if e.Type != models.EventProgress {
		select {
		case o.ch <- e:
		case <-o.done:
		}
		return
	}
	select {
	case o.ch <- e:
	default:
	}
}

// jobRow is the view's copy of one job.
type jobRow struct {
	url      string
	id       string
	state    models.State
	progress float64
	filename string
	reason   string
}

func (r *jobRow) done() bool {
	return r.state.Terminal()
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	jobs     Jobs
	library  Library
	urls     []string
	rows     []*jobRow
	index    map[string]*jobRow
	observer *chanObserver
	bar      progress.Model
	fileList list.Model
	loaded   bool
	selected *models.LibraryFile
	width    int
	height   int
	err      error
	help     help.Model
	keys     keyMap
}

// NewGrabModel creates a model that submits urls and follows each job until it finishes.
//
// library is optional; when set, the result view can switch to the library listing.
func NewGrabModel(ctx context.Context, jobs Jobs, library Library, urls []string) *Model {
	return &Model{
		ctx:      ctx,
		view:     GrabView,
		jobs:     jobs,
		library:  library,
		urls:     urls,
		index:    make(map[string]*jobRow),
		observer: &chanObserver{ch: make(chan models.Event, eventBuffer), done: ctx.Done()},
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// NewLibraryModel creates a model that browses the downloads directory.
func NewLibraryModel(ctx context.Context, library Library) *Model {
	return &Model{
		ctx:     ctx,
		view:    LibraryView,
		library: library,
		index:   make(map[string]*jobRow),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init submits the jobs or lists the library, depending on the starting view.
func (m *Model) Init() tea.Cmd {
	if m.view == LibraryView {
		return m.listFiles()
	}
	return m.submit()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(msg.Width-20, 60), 10)
		if m.loaded {
			m.fileList.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgJobsSubmitted:
			return m.handleSubmitted(msg.data.([]submission))
		case MsgJobEvent:
			return m.handleEvent(msg.data.(models.Event))
		case MsgFilesListed:
			data := msg.data.(struct {
				files []models.LibraryFile
				err   error
			})
			return m.handleFiles(data.files, data.err)
		}
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case GrabView:
		return m.renderGrab()
	case ResultView:
		return m.renderResult()
	case LibraryView:
		return m.renderLibrary()
	case TagsView:
		return m.renderTags()
	default:
		return ""
	}
}

// Failed returns the number of jobs that did not complete.
func (m *Model) Failed() int {
	n := 0
	for _, row := range m.rows {
		if row.state != models.StateComplete {
			n++
		}
	}
	return n
}

// Finished reports whether every submitted job has reached a terminal state.
func (m *Model) Finished() bool {
	if len(m.rows) == 0 {
		return m.view != GrabView
	}
	for _, row := range m.rows {
		if !row.done() {
			return false
		}
	}
	return true
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && !m.filtering() {
		m.unsubscribe()
		return m, tea.Quit
	}

	switch m.view {
	case ResultView:
		if key.Matches(msg, m.keys.library) && m.library != nil {
			m.view = LibraryView
			return m, m.listFiles()
		}
	case LibraryView:
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.fileList.SelectedItem().(fileItem); ok {
				file := item.file
				m.selected = &file
				m.view = TagsView
			}
			return m, nil
		case key.Matches(msg, m.keys.refresh):
			return m, m.listFiles()
		}
	case TagsView:
		if key.Matches(msg, m.keys.back) {
			m.selected = nil
			m.view = LibraryView
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != LibraryView || !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.fileList, cmd = m.fileList.Update(msg)
	return m, cmd
}

func (m *Model) filtering() bool {
	return m.view == LibraryView && m.loaded && m.fileList.FilterState() == list.Filtering
}

func (m *Model) handleSubmitted(subs []submission) (tea.Model, tea.Cmd) {
	for _, s := range subs {
		row := &jobRow{url: s.url, id: s.id, state: models.StatePending}
		if s.err != nil {
			row.state = models.StateFailed
			row.reason = s.err.Error()
		} else {
			m.index[s.id] = row
		}
		m.rows = append(m.rows, row)
	}

	if m.Finished() {
		m.view = ResultView
		return m, nil
	}
	return m, m.waitForEvent()
}

func (m *Model) handleEvent(e models.Event) (tea.Model, tea.Cmd) {
	row, ok := m.index[e.JobID]
	if !ok || row.done() {
		return m, m.waitForEvent()
	}

	switch e.Type {
	case models.EventStatus:
		row.state = e.Status
	case models.EventProgress:
		if e.Progress > row.progress {
			row.progress = e.Progress
		}
		if row.state == models.StatePending && e.Progress > 0 {
			row.state = models.StateRunning
		}
	case models.EventComplete:
		row.state = models.StateComplete
		row.progress = 100
		row.filename = e.Filename
	case models.EventError:
		row.state = models.StateFailed
		row.reason = e.Error
	}

	if m.Finished() {
		m.view = ResultView
		return m, nil
	}
	return m, m.waitForEvent()
}

func (m *Model) handleFiles(files []models.LibraryFile, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.err = err
		return m, nil
	}

	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = fileItem{file: f}
	}
	m.fileList = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-8, 0))
	m.fileList.Title = fmt.Sprintf("Downloads (%d)", len(files))
	m.loaded = true
	m.err = nil
	return m, nil
}

func (m *Model) submit() tea.Cmd {
	return func() tea.Msg {
		subs := make([]submission, 0, len(m.urls))
		for _, url := range m.urls {
			id, err := m.jobs.Submit(url)
			if err == nil && !m.jobs.Subscribe(id, m.observer) {
				err = fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
			}
			subs = append(subs, submission{url: url, id: id, err: err})
		}
		return jobsSubmittedMsg(subs)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.observer.ch
	return func() tea.Msg {
		select {
		case e := <-ch:
			return jobEventMsg(e)
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m *Model) unsubscribe() {
	if m.observer == nil || m.jobs == nil {
		return
	}
	for id := range m.index {
		m.jobs.Unsubscribe(id, m.observer)
	}
}

func (m *Model) listFiles() tea.Cmd {
	return func() tea.Msg {
		files, err := m.library.List(m.ctx)
		return filesListedMsg(files, err)
	}
}

func (m *Model) renderGrab() string {
	if len(m.rows) == 0 {
		return styles.title.Render(fmt.Sprintf("Submitting %d URL(s)...", len(m.urls)))
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Grabbing %d track(s)", len(m.rows))))
	b.WriteString("\n")
	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderRow(row *jobRow) string {
	name := row.url
	if row.filename != "" {
		name = row.filename
	}

	mark := styles.Mark(row.state)
	switch row.state {
	case models.StateComplete:
		return fmt.Sprintf("%s %s", mark, name)
	case models.StateFailed:
		return fmt.Sprintf("%s %s\n  %s", mark, name, styles.warn.Render(row.reason))
	case models.StatePending:
		return fmt.Sprintf("%s %s %s", mark, name, styles.dim.Render("queued"))
	default:
		return fmt.Sprintf("%s %s\n  %s %5.1f%%", mark, name, m.bar.ViewAs(row.progress/100), row.progress)
	}
}

func (m *Model) renderResult() string {
	failed := m.Failed()
	done := len(m.rows) - failed

	var b strings.Builder
	if failed == 0 {
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Downloaded %d track(s)", done)))
	} else {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Downloaded %d of %d track(s)", done, len(m.rows))))
	}
	b.WriteString("\n\n")
	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	keys := []key.Binding{m.keys.quit}
	if m.library != nil {
		keys = []key.Binding{m.keys.library, m.keys.quit}
	}
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderLibrary() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}
	if !m.loaded {
		return styles.dim.Render("Loading library...")
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.fileList.View(), helpView)
}

func (m *Model) renderTags() string {
	if m.selected == nil {
		return ""
	}
	f := m.selected
	title := styles.title.Render(f.Filename)
	info := fmt.Sprintf(
		"Title:    %s\nArtist:   %s\nAlbum:    %s\nDate:     %s\nDuration: %s\nSize:     %s\nModified: %s",
		f.Metadata.Title,
		f.Metadata.Artist,
		f.Metadata.Album,
		f.Metadata.Date,
		shared.FormatDuration(f.Metadata.Duration),
		shared.FormatBytes(f.Size),
		f.Date.Format("2006-01-02 15:04"),
	)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
