package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Info looks up a video and prints its details with the inferred tags.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	registry, err := r.newRegistry(nil)
	if err != nil {
		return err
	}

	summary, err := registry.VideoInfo(ctx, url)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader(summary.Title)
	r.writePlain("Uploader:  %s\n", summary.Uploader)
	r.writePlain("Duration:  %s\n", shared.FormatDuration(int(summary.Duration)))
	if summary.Thumbnail != "" {
		r.writePlain("Thumbnail: %s\n", summary.Thumbnail)
	}
	r.writePlainln("Inferred tags:")
	r.writeInferred(summary.Metadata.Title, summary.Metadata.Artist, summary.Metadata.Album, summary.Metadata.ReleaseYear)
	return nil
}

// Infer runs metadata inference on a title and optional description.
func (r *Runner) Infer(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	description := cmd.String("description")

	if path := cmd.String("description-file"); path != "" {
		if description != "" {
			return fmt.Errorf("%w: cannot specify both --description and --description-file", shared.ErrInvalidArgument)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read description: %w", err)
		}
		description = string(data)
	}

	inferred := r.engine.Infer(title, description)
	if cmd.Bool("json") {
		return r.writeJSON(inferred, true)
	}

	r.writeInferred(inferred.Title, inferred.Artist, inferred.Album, inferred.ReleaseYear)
	return nil
}

func (r *Runner) writeInferred(title, artist, album, year string) {
	for _, field := range []struct{ label, value string }{
		{"Title", title},
		{"Artist", artist},
		{"Album", album},
		{"Year", year},
	} {
		value := field.value
		if value == "" {
			value = "-"
		}
		r.writePlain("  %-7s %s\n", field.label+":", value)
	}
}

// Playlist lists a playlist's entries, or with --grab submits each one and waits for the downloads.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	if !cmd.Bool("grab") {
		return r.listPlaylist(ctx, url, cmd.Int("limit"), cmd.Bool("json"))
	}
	return r.grabPlaylist(ctx, url, tasks.BatchOpts{
		RateLimit: cmd.Float("rate"),
		Limit:     cmd.Int("limit"),
		Wait:      true,
	}, cmd.Bool("json"))
}

func (r *Runner) listPlaylist(ctx context.Context, url string, limit int, asJSON bool) error {
	pl, err := r.ytdlp().Playlist(ctx, url)
	if err != nil {
		return err
	}
	if limit > 0 && len(pl.Entries) > limit {
		pl.Entries = pl.Entries[:limit]
	}

	if asJSON {
		return r.writeJSON(pl, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d entries)", pl.Title, len(pl.Entries)))
	for i, entry := range pl.Entries {
		r.writePlain("%3d. %s [%s]\n", i+1, entry.Title, shared.FormatDuration(int(entry.Duration)))
		r.writePlain("     %s\n", entry.URL)
	}
	return nil
}

func (r *Runner) grabPlaylist(ctx context.Context, url string, opts tasks.BatchOpts, asJSON bool) error {
	registry, closeHistory, err := r.grabRegistry()
	if err != nil {
		return err
	}
	defer closeHistory()

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			if asJSON {
				continue
			}
			switch update.Phase {
			case tasks.FetchPlaylist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SubmitEntries:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.AwaitJobs:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := registry.SubmitPlaylist(ctx, progressCh, r.ytdlp(), url, opts)
	close(progressCh)
	<-printed
	r.drain(registry)

	if err != nil {
		return err
	}

	if asJSON {
		if err := r.writeJSON(batchSummary(result), true); err != nil {
			return err
		}
		return batchError(result)
	}

	r.writePlain("\n")
	r.writePlainHeader("Playlist Complete!")
	r.writePlain("Playlist: %s\n", result.Playlist)
	r.writePlain("Downloaded: %d/%d\n", result.Total-result.Failed, result.Total)
	if result.Failed > 0 {
		r.writePlain("\nFailed %d entries:\n", result.Failed)
		for _, item := range result.Items {
			switch {
			case item.Error != nil:
				r.writePlain("  - %s: %v\n", item.Entry.Title, item.Error)
			case item.Job != nil && item.Job.FailureReason != "":
				r.writePlain("  - %s: %s\n", item.Entry.Title, item.Job.FailureReason)
			}
		}
	}
	return batchError(result)
}

func batchError(result *tasks.BatchResult) error {
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d playlist entries failed", result.Failed, result.Total)
	}
	return nil
}

type batchEntry struct {
	URL   string      `json:"url"`
	Title string      `json:"title"`
	JobID string      `json:"jobId,omitempty"`
	Job   *models.Job `json:"job,omitempty"`
	Error string      `json:"error,omitempty"`
}

func batchSummary(result *tasks.BatchResult) map[string]any {
	entries := make([]batchEntry, 0, len(result.Items))
	for _, item := range result.Items {
		entry := batchEntry{URL: item.Entry.URL, Title: item.Entry.Title, JobID: item.JobID, Job: item.Job}
		if item.Error != nil {
			entry.Error = item.Error.Error()
		}
		entries = append(entries, entry)
	}
	return map[string]any{
		"playlist":  result.Playlist,
		"total":     result.Total,
		"submitted": result.Submitted,
		"failed":    result.Failed,
		"entries":   entries,
	}
}
