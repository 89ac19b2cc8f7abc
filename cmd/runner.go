package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/browser"
	"github.com/jobblixor/autoapply/internal/engine"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/repositories"
	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/jobblixor/autoapply/internal/sites"
	"github.com/jobblixor/autoapply/internal/storage"
	"github.com/urfave/cli/v3"
)

// JobSearcher discovers job postings for a query.
type JobSearcher interface {
	Search(ctx context.Context, query, location string, limit int) ([]models.JobPosting, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	searcher JobSearcher
	launcher browser.Launcher
	db       *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Searcher JobSearcher
	Launcher browser.Launcher
	DB       *sql.DB // injected for tests; commands open from config when nil
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
	if opts.Launcher == nil {
		opts.Launcher = browser.NewChromeLauncher(opts.Config.Engine.Headless, "")
	}

	return &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		searcher: opts.Searcher,
		launcher: opts.Launcher,
		db:       opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, profileCommand, jobsCommand, applyCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// database returns the injected connection or opens one from config.
// The caller owns closing it only when this call opened it.
func (r *Runner) database() (*sql.DB, bool, error) {
	if r.db != nil {
		return r.db, false, nil
	}
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, true, nil
}

// newEngine wires the batch engine over the given database connection.
func (r *Runner) newEngine(db *sql.DB) (*engine.Engine, error) {
	profiles := repositories.NewProfileRepository(db)
	attempts := repositories.NewAttemptRepository(db)

	screenshots, err := storage.NewScreenshots(r.config.Engine.ScreenshotDir)
	if err != nil {
		return nil, err
	}

	ledger := engine.NewLedger(profiles, engine.LedgerOpts{
		Retries: r.config.Engine.CommitRetries,
		Logger:  r.logger,
	})
	executor := engine.NewExecutor(engine.ExecutorOpts{
		Ledger:            ledger,
		Registry:          sites.DefaultRegistry(),
		Launcher:          r.launcher,
		Recorder:          attempts,
		Evidence:          screenshots,
		NavigationTimeout: r.config.Engine.NavigationTimeout(),
		Logger:            r.logger,
	})

	return engine.NewEngine(executor, r.logger), nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
