package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/metadata"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/process"
	"github.com/desertthunder/audiograb/internal/repositories"
	"github.com/desertthunder/audiograb/internal/services"
	"github.com/desertthunder/audiograb/internal/shared"
	"github.com/desertthunder/audiograb/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	process    process.Runner
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *metadata.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Process    process.Runner
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Process == nil {
		opts.Process = process.NewExecRunner(opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		process:    opts.Process,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     metadata.NewEngine(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, grabCommand, infoCommand, inferCommand, playlistCommand,
		historyCommand, libraryCommand, tagsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by every dependency built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if _, ok := r.process.(*process.ExecRunner); ok {
		r.process = process.NewExecRunner(l)
	}
}

// before loads the configuration named by --config and applies the log level.
//
// A missing file is not an error: the embedded defaults are used instead.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		config, err := r.loadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	level := r.config.Logging.Level
	if flag := cmd.String("log-level"); flag != "" {
		level = flag
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return config, nil
}

func (r *Runner) ytdlp() *services.YTDLP {
	return services.NewYTDLP(r.process, r.config.Tools.YTDLP, r.config.Tools.FFmpeg, r.logger)
}

func (r *Runner) ffmpeg() *services.FFmpeg {
	return services.NewFFmpeg(r.process, r.config.Tools.FFmpeg, "", r.logger)
}

func (r *Runner) library() *services.Library {
	return services.NewLibrary(r.config.Downloads.Dir, r.ffmpeg(), r.logger)
}

func (r *Runner) artwork() *services.ArtworkClient {
	return services.NewArtworkClient(r.httpClient)
}

// openHistory opens the history database, creating and migrating it as needed.
func (r *Runner) openHistory() (*sql.DB, *repositories.HistoryRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, repositories.NewHistoryRepository(db), nil
}

// newRegistry builds a job registry from the configuration. history may be nil.
func (r *Runner) newRegistry(history models.HistoryRepository) (*tasks.Registry, error) {
	retention, err := r.config.Downloads.RetentionPeriod()
	if err != nil {
		return nil, err
	}

	deps := tasks.RegistryDeps{
		Downloader: r.ytdlp(),
		Tagger:     r.ffmpeg(),
		History:    history,
		Engine:     r.engine,
	}
	if r.config.Downloads.EmbedArtwork {
		deps.Artwork = r.artwork()
	}

	return tasks.NewRegistry(deps, tasks.RegistryOpts{
		Dir:           r.config.Downloads.Dir,
		Format:        r.config.Downloads.Format,
		DefaultExt:    r.config.Downloads.DefaultExt,
		MaxConcurrent: r.config.Downloads.MaxConcurrent,
		Retention:     retention,
		EmbedArtwork:  r.config.Downloads.EmbedArtwork,
	}, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
