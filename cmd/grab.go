package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
	"github.com/desertthunder/audiograb/internal/ui"
	"github.com/urfave/cli/v3"
)

// tuiLogPath receives log output while the interactive view owns the terminal.
const tuiLogPath = "./tmp/audiograb-tui.log"

// Grab downloads every URL argument, following progress interactively or as plain lines.
func (r *Runner) Grab(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one URL is required", shared.ErrMissingArgument)
	}
	if dir := cmd.String("dir"); dir != "" {
		r.config.Downloads.Dir = dir
	}
	if cmd.Bool("no-artwork") {
		r.config.Downloads.EmbedArtwork = false
	}

	if cmd.Bool("plain") || cmd.Bool("json") {
		return r.grabPlain(ctx, urls, cmd.Bool("json"))
	}
	return r.grabInteractive(ctx, urls)
}

func (r *Runner) grabInteractive(ctx context.Context, urls []string) error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	registry, closeHistory, err := r.grabRegistry()
	if err != nil {
		return err
	}
	defer closeHistory()

	uiCtx, cancel := context.WithCancel(ctx)
	model := ui.NewGrabModel(uiCtx, registry, r.library(), urls)
	_, runErr := tea.NewProgram(model, tea.WithContext(uiCtx)).Run()
	cancel()

	r.drain(registry)
	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	if failed := model.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d downloads failed (see %s)", failed, len(urls), tuiLogPath)
	}
	return nil
}

func (r *Runner) grabPlain(ctx context.Context, urls []string, asJSON bool) error {
	registry, closeHistory, err := r.grabRegistry()
	if err != nil {
		return err
	}
	defer closeHistory()

	var ids []string
	rejected := 0
	for _, url := range urls {
		id, err := registry.Submit(url)
		if err != nil {
			rejected++
			r.logger.Warn("download rejected", "url", url, "err", err)
			if !asJSON {
				r.writePlain("✗ %s: %v\n", url, err)
			}
			continue
		}
		ids = append(ids, id)
	}

	printer := newGrabPrinter(r, len(ids), asJSON)
	for _, id := range ids {
		registry.Subscribe(id, printer)
	}

	select {
	case <-printer.done:
	case <-ctx.Done():
		r.logger.Warn("interrupted, waiting for running downloads")
	}
	r.drain(registry)

	jobs := make([]models.Job, 0, len(ids))
	failed := rejected
	for _, id := range ids {
		job, ok := registry.Get(id)
		if !ok {
			continue
		}
		if job.State != models.StateComplete {
			failed++
		}
		jobs = append(jobs, job)
	}

	if asJSON {
		if err := r.writeJSON(jobs, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		r.writePlainHeader(fmt.Sprintf("Downloaded %d of %d", len(urls)-failed, len(urls)))
		for _, job := range jobs {
			if job.State == models.StateComplete {
				r.writePlain("✓ %s\n", job.Filename)
			} else {
				r.writePlain("✗ %s: %s\n", job.SourceURL, job.FailureReason)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(urls))
	}
	return nil
}

// grabRegistry builds a registry that records history when the database can be opened.
func (r *Runner) grabRegistry() (*tasks.Registry, func(), error) {
	var history models.HistoryRepository
	closeHistory := func() {}

	db, repo, err := r.openHistory()
	if err != nil {
		r.logger.Warn("history disabled", "err", err)
	} else {
		history = repo
		closeHistory = func() { db.Close() }
	}

	registry, err := r.newRegistry(history)
	if err != nil {
		closeHistory()
		return nil, nil, err
	}
	return registry, closeHistory, nil
}

// drain waits for running jobs so their files and history rows are complete before exit.
func (r *Runner) drain(registry *tasks.Registry) {
	running := 0
	for _, job := range registry.List() {
		if !job.State.Terminal() {
			running++
		}
	}
	if running > 0 {
		r.logger.Info("waiting for running downloads", "count", running)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDrainTimeout)
	defer cancel()
	if err := registry.Close(ctx); err != nil {
		r.logger.Warn("downloads still running at exit", "err", err)
	}
}

// grabPrinter writes one line per job transition and a line per 10% of progress.
//
// A quiet printer only tracks when every job has finished.
type grabPrinter struct {
	mu      sync.Mutex
	r       *Runner
	quiet   bool
	last    map[string]int
	pending int
	done    chan struct{}
}

func newGrabPrinter(r *Runner, pending int, quiet bool) *grabPrinter {
	p := &grabPrinter{r: r, quiet: quiet, last: make(map[string]int), pending: pending, done: make(chan struct{})}
	if pending == 0 {
		close(p.done)
	}
	return p
}

func (p *grabPrinter) Notify(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.quiet {
		if e.Terminal() {
			p.finish()
		}
		return
	}

	label := shortID(e.JobID)
	switch e.Type {
	case models.EventStatus:
		p.r.writePlain("[%s] %s\n", label, e.Status)
	case models.EventProgress:
		step := int(e.Progress) / 10
		if seen, ok := p.last[e.JobID]; ok && step <= seen {
			return
		}
		p.last[e.JobID] = step
		p.r.writePlain("[%s] %5.1f%%\n", label, e.Progress)
	case models.EventComplete:
		p.r.writePlain("[%s] ✓ %s\n", label, e.Filename)
		p.finish()
	case models.EventError:
		p.r.writePlain("[%s] ✗ %s\n", label, e.Error)
		p.finish()
	}
}

func (p *grabPrinter) finish() {
	p.pending--
	if p.pending == 0 {
		close(p.done)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
