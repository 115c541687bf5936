// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, csv, markdown or txt",
		Value:   value,
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the download service (JSON API and progress streams)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.StringFlag{
				Name:  "cors-origin",
				Usage: "Allowed cross-origin requests",
				Value: "*",
			},
			&cli.DurationFlag{
				Name:  "drain-timeout",
				Usage: "How long to wait for running downloads on shutdown",
				Value: defaultDrainTimeout,
			},
		},
		Action: r.Serve,
	}
}

// grabCommand downloads one or more URLs
func grabCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "grab",
		Aliases:   []string{"get"},
		Usage:     "Download and tag audio from one or more video URLs",
		ArgsUsage: "<url> [url...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print progress lines instead of the interactive view",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the final jobs as JSON (implies --plain)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"o"},
				Usage:   "Download directory (overrides downloads.dir)",
			},
			&cli.BoolFlag{
				Name:  "no-artwork",
				Usage: "Skip embedding the video thumbnail",
			},
		},
		Action: r.Grab,
	}
}

// infoCommand queries a video without downloading it
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show video details and the inferred tags",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Info,
	}
}

// inferCommand runs metadata inference on free text
func inferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "infer",
		Usage: "Infer title, artist, album and year from a video title and description",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Video title",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Video description",
			},
			&cli.StringFlag{
				Name:  "description-file",
				Usage: "Read the description from a file",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Infer,
	}
}

// playlistCommand lists or downloads a playlist
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "List the entries of a playlist, or download all of them",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "grab",
				Usage: "Submit every entry for download and wait for them",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries (0 = all)",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Submissions per second",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlist,
	}
}

// historyCommand reads the download history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show finished downloads",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries (0 = all)",
				Value:   50,
			},
			formatFlag("txt"),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "delete",
				Usage: "Remove an entry from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// libraryCommand browses the downloads directory
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"ls"},
		Usage:   "Browse downloaded files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print the listing instead of the interactive view",
			},
			formatFlag("txt"),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the listing to a file",
			},
		},
		Action: r.Library,
	}
}

// tagsCommand reads and edits container tags
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Read and edit the tags of downloaded files",
		Commands: []*cli.Command{
			{
				Name:  "read",
				Usage: "Print the tags of a file in the downloads directory",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "filename"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TagsRead,
			},
			{
				Name:  "write",
				Usage: "Replace tags; fields that are not given keep their current value",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "filename"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Track title"},
					&cli.StringFlag{Name: "artist", Usage: "Track artist"},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.StringFlag{Name: "date", Usage: "Release year"},
				},
				Action: r.TagsWrite,
			},
			{
				Name:  "artwork",
				Usage: "Attach cover art from an image URL or the thumbnail of a search hit",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "filename"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Image URL"},
					&cli.StringFlag{Name: "query", Usage: "Video search query or URL whose thumbnail is used"},
				},
				Action: r.TagsArtwork,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the history database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
