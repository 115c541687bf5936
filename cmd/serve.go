package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/server"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultDrainTimeout = 2 * time.Minute

// Serve runs the HTTP service until the process is interrupted, then waits for running downloads.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	var history models.HistoryRepository
	db, repo, err := r.openHistory()
	if err != nil {
		r.logger.Warn("history disabled", "err", err)
	} else {
		defer db.Close()
		history = repo
	}

	registry, err := r.newRegistry(history)
	if err != nil {
		return err
	}
	go registry.Janitor(ctx)

	ytdlp := r.ytdlp()
	api := server.NewAPI(server.APIDeps{
		Jobs:       registry,
		Library:    r.library(),
		History:    history,
		Playlists:  ytdlp,
		Artwork:    r.artwork(),
		Thumbnails: ytdlp,
		Engine:     r.engine,
	}, server.NewRateLimiter(r.config.Server.RateLimit, r.config.Server.Burst), r.logger)

	router := server.NewBasicRouter()
	router.Use(
		server.Recoverer(r.logger),
		server.RequestLogger(r.logger),
		server.CORS(cmd.String("cors-origin")),
	)
	api.Register(router)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	r.logger.Info("starting service", "addr", addr, "downloads", r.config.Downloads.Dir)

	serveErr := server.New(addr, router, r.logger).ListenAndServe(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), cmd.Duration("drain-timeout"))
	defer cancel()
	if err := registry.Close(drainCtx); err != nil {
		if errors.Is(err, shared.ErrTimeout) {
			r.logger.Warn("downloads still running at exit", "timeout", cmd.Duration("drain-timeout"))
		} else {
			r.logger.Error("failed to drain downloads", "err", err)
		}
	}

	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}
