package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audiograb/internal/formatter"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/ui"
	"github.com/urfave/cli/v3"
)

// Library browses the downloads directory interactively, or prints and exports the listing.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	output := cmd.String("output")
	if !cmd.Bool("plain") && output == "" {
		return r.browseLibrary(ctx)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	files, err := r.library().List(ctx)
	if err != nil {
		return err
	}
	records := formatter.FromLibrary(files)

	if output != "" {
		path, err := formatter.WriteExport(format, "Library", records, "library", output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d files to %s\n", len(records), path)
		return nil
	}

	data, err := formatter.Export(format, "Library", records)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

func (r *Runner) browseLibrary(ctx context.Context) error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewLibraryModel(ctx, r.library())
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// TagsRead prints the tags of one downloaded file.
func (r *Runner) TagsRead(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.StringArg("filename")
	if filename == "" {
		return fmt.Errorf("%w: filename is required", shared.ErrMissingArgument)
	}

	tags, err := r.library().ReadTags(ctx, filename)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tags, true)
	}

	r.writePlainHeader(filename)
	r.writeInferred(tags.Title, tags.Artist, tags.Album, tags.Date)
	if tags.Duration > 0 {
		r.writePlain("  %-7s %s\n", "Length:", shared.FormatDuration(tags.Duration))
	}
	return nil
}

// TagsWrite updates the tags of one downloaded file. Fields without a flag keep their current value.
func (r *Runner) TagsWrite(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.StringArg("filename")
	if filename == "" {
		return fmt.Errorf("%w: filename is required", shared.ErrMissingArgument)
	}

	lib := r.library()
	tags, err := lib.ReadTags(ctx, filename)
	if err != nil {
		return err
	}

	changed := false
	for _, field := range []struct {
		flag string
		dst  *string
	}{
		{"title", &tags.Title},
		{"artist", &tags.Artist},
		{"album", &tags.Album},
		{"date", &tags.Date},
	} {
		if cmd.IsSet(field.flag) {
			*field.dst = cmd.String(field.flag)
			changed = true
		}
	}
	if !changed {
		return fmt.Errorf("%w: set at least one of --title, --artist, --album or --date", shared.ErrMissingArgument)
	}

	tags.Duration = 0
	if err := lib.WriteTags(ctx, filename, tags); err != nil {
		return err
	}
	r.writePlain("✓ Updated tags for %s\n", filename)
	return nil
}

// TagsArtwork fetches an image and embeds it as the cover art of one downloaded file.
//
// With --query the thumbnail of the first search hit is used.
func (r *Runner) TagsArtwork(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.StringArg("filename")
	if filename == "" {
		return fmt.Errorf("%w: filename is required", shared.ErrMissingArgument)
	}

	url, query := cmd.String("url"), cmd.String("query")
	switch {
	case url == "" && query == "":
		return fmt.Errorf("%w: either --url or --query must be provided", shared.ErrMissingArgument)
	case url != "" && query != "":
		return fmt.Errorf("%w: cannot specify both --url and --query", shared.ErrInvalidArgument)
	}

	lib := r.library()
	if _, err := lib.Resolve(filename); err != nil {
		return err
	}

	if query != "" {
		found, err := r.ytdlp().SearchThumbnail(ctx, query)
		if err != nil {
			return err
		}
		r.logger.Debug("found thumbnail", "query", query, "url", found)
		url = found
	}

	image, err := r.artwork().Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := lib.SetArtwork(ctx, filename, image); err != nil {
		return err
	}
	r.writePlain("✓ Artwork set for %s\n", filename)
	r.writePlain("Source: %s\n", url)
	return nil
}
