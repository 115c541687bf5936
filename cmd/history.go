package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/audiograb/internal/formatter"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints finished downloads, newest first, or exports them with --output.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return err
	}
	records := formatter.FromHistory(entries)

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(format, "Download History", records, "history", output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d entries to %s\n", len(records), path)
		return nil
	}

	data, err := formatter.Export(format, "Download History", records)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryDelete removes one history entry by ID.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}

	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted %s\n", id)
	return nil
}
