package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/repositories"
	"github.com/desertthunder/plstat/internal/services"
	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/tasks"
	"github.com/desertthunder/plstat/internal/trigger"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	executor   services.Executor
	getenv     func(string) string
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client // Overrides the purge and GitHub clients
	Executor   services.Executor
	Getenv     func(string) string
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer // Progress bar destination, defaults to os.Stderr
	DB         *sql.DB
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
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Executor == nil {
		opts.Executor = services.CommandExecutor{}
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		executor:   opts.Executor,
		getenv:     opts.Getenv,
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, triggerCommand, statsCommand, publishCommand, purgeCommand, historyCommand,
		setupCommand, workflowCommand, dispatchCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags: log level and format, then the configuration file.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if err := shared.SetLogFormat(r.logger, cmd.String("log-format")); err != nil {
		return ctx, err
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	return ctx, r.loadConfig()
}

// after releases the database handle, if one was opened.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// loadConfig reads configPath when it exists and fills repository coordinates from the Actions environment.
func (r *Runner) loadConfig() error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			r.config = config
			r.logger.Debug("loaded config", "path", r.configPath)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if repo := r.getenv("GITHUB_REPOSITORY"); repo != "" && r.config.Repository.Owner == shared.DefaultConfig().Repository.Owner {
		if owner, name, ok := strings.Cut(repo, "/"); ok {
			r.config.Repository.Owner = owner
			r.config.Repository.Name = name
		}
	}
	if ref := r.getenv("GITHUB_REF_NAME"); ref != "" && r.getenv("GITHUB_REF_TYPE") != "tag" {
		r.config.Repository.Branch = ref
	}
	return nil
}

// SetLogger replaces the logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// database opens the run history database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	path, err := r.config.DatabasePath()
	if err != nil {
		return nil, err
	}
	cfg := r.config.Database
	cfg.Path = path

	db, err := shared.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("opened database", "path", path)
	r.db = db
	return db, nil
}

// repositories returns the run and snapshot stores, or nils when the database is unavailable.
func (r *Runner) repositories() (*repositories.RunRepository, *repositories.SnapshotRepository) {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return nil, nil
	}
	return repositories.NewRunRepository(db), repositories.NewSnapshotRepository(db)
}

func (r *Runner) repoDir() string {
	dir := r.config.Repository.Path
	if dir == "" {
		dir = "."
	}
	return dir
}

func (r *Runner) child(step string) *log.Logger {
	return shared.WithLogger(r.logger, "step", step)
}

// barOutput returns the progress bar writer when it is a terminal.
func (r *Runner) barOutput() io.Writer {
	f, ok := r.errOutput.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return f
	}
	return nil
}

func (r *Runner) gitService() *services.GitService {
	return services.NewGitService(r.repoDir(),
		services.WithGitExecutor(r.executor),
		services.WithGitToken(r.config.Token(r.getenv)),
		services.WithGitLogger(r.child("git")),
	)
}

func (r *Runner) statsUpdater(snapshots tasks.SnapshotStore, progress chan<- tasks.ProgressUpdate) *tasks.StatsUpdater {
	return tasks.NewStatsUpdater(tasks.StatsOpts{
		Root:       r.repoDir(),
		OutputDir:  r.config.Stats.OutputDir,
		Extensions: r.config.Stats.Extensions,
		Snapshots:  snapshots,
		Logger:     r.child("stats"),
		Bar:        r.barOutput(),
		Progress:   progress,
	})
}

// updater returns the configured external command, or the built-in updater when none is set.
func (r *Runner) updater(snapshots tasks.SnapshotStore) (services.Updater, error) {
	if len(r.config.Stats.Command) == 0 {
		return r.statsUpdater(snapshots, nil), nil
	}
	return services.NewScriptRunner(r.repoDir(), r.config.Stats.Command, r.config.StatsTimeout(), r.executor, r.child("updater"))
}

func (r *Runner) publisher(git *services.GitService) *services.Publisher {
	cfg := r.config
	return services.NewPublisher(git, services.PublishOpts{
		Message:  cfg.Publish.Message,
		Identity: services.Identity{Name: cfg.Publish.AuthorName, Email: cfg.Publish.AuthorEmail},
		Remote:   cfg.Repository.Remote,
		Branch:   cfg.Repository.Branch,
	}, r.child("publish"))
}

func (r *Runner) purgeService(delay time.Duration) *services.PurgeService {
	client := r.httpClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(r.config.Purge.TimeoutSeconds) * time.Second}
	}
	return services.NewPurgeService(services.PurgeOpts{
		Endpoint:   r.config.Purge.Endpoint,
		Delay:      delay,
		RateLimit:  r.config.Purge.RateLimit,
		HTTPClient: client,
		Logger:     r.child("purge"),
	})
}

func (r *Runner) purgePaths() []string {
	paths := make([]string, 0, len(r.config.Purge.Paths))
	for _, p := range r.config.Purge.Paths {
		paths = append(paths, r.config.ExpandPath(p))
	}
	return paths
}

func (r *Runner) evaluator() (*trigger.Evaluator, error) {
	e, err := trigger.NewEvaluator(r.config.Trigger.Paths, r.config.Trigger.IgnorePaths)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return e, nil
}

// engine wires the pipeline from configuration. Run history is recorded when the database opens.
func (r *Runner) engine() (*tasks.PipelineEngine, error) {
	evaluator, err := r.evaluator()
	if err != nil {
		return nil, err
	}

	runs, snapshots := r.repositories()
	var snapshotStore tasks.SnapshotStore
	if snapshots != nil {
		snapshotStore = snapshots
	}
	updater, err := r.updater(snapshotStore)
	if err != nil {
		return nil, err
	}

	git := r.gitService()
	opts := tasks.PipelineOpts{
		Evaluator:  evaluator,
		Lock:       shared.NewTreeLock(r.repoDir()),
		Branch:     r.config.Repository.Branch,
		Updater:    updater,
		Publisher:  r.publisher(git),
		Purger:     r.purgeService(r.config.PurgeDelay()),
		PurgePaths: r.purgePaths(),
		Logger:     r.child("pipeline"),
	}
	if url := r.config.Repository.CloneURL; url != "" {
		opts.Checkout = git
		opts.CloneURL = url
	}
	if runs != nil {
		opts.Runs = runs
	}
	return tasks.NewPipelineEngine(opts), nil
}

// logProgress logs pipeline progress until the channel closes.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		if update.Message == "" {
			continue
		}
		if update.Total > 0 {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", fmt.Sprintf("%d/%d", update.Step, update.Total))
		} else {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}
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

// statsDir returns the statistics output directory inside the working tree.
func (r *Runner) statsDir() string {
	out := r.config.Stats.OutputDir
	if out == "" {
		out = "stats"
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(r.repoDir(), out)
}
