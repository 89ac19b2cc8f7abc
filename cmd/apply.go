package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jobblixor/autoapply/internal/engine"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/repositories"
	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/jobblixor/autoapply/internal/ui"
	"github.com/urfave/cli/v3"
)

func applyCommand(r *Runner) *cli.Command {
	searchFlags := []cli.Flag{
		&cli.StringFlag{Name: "email", Required: true, Usage: "email of the candidate profile"},
		&cli.StringFlag{Name: "title", Usage: "job title to search for, defaults to the profile's"},
		&cli.StringFlag{Name: "location", Usage: "location to search in, defaults to the profile's"},
		&cli.IntFlag{Name: "limit", Value: 5, Usage: "maximum number of postings to apply to"},
	}

	return &cli.Command{
		Name:  "apply",
		Usage: "run auto-apply batches and inspect past attempts",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "search for jobs and apply to each one",
				Flags:  searchFlags,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ApplyRun(ctx, cmd.String("email"), cmd.String("title"),
						cmd.String("location"), int(cmd.Int("limit")))
				},
			},
			{
				Name:   "tui",
				Usage:  "run a batch in the interactive terminal view",
				Flags:  searchFlags,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ApplyTUI(ctx, cmd.String("email"), cmd.String("title"),
						cmd.String("location"), int(cmd.Int("limit")))
				},
			},
			{
				Name:  "history",
				Usage: "list a profile's past application attempts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "email of the candidate profile"},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ApplyHistory(ctx, cmd.String("email"), cmd.Bool("json"))
				},
			},
		},
	}
}

// loadBatch resolves the profile and the postings for a batch run.
func (r *Runner) loadBatch(ctx context.Context, profiles *repositories.ProfileRepository, email, title, location string, limit int) (*models.Profile, []models.JobPosting, error) {
	profile, err := profiles.GetProfile(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	if title == "" {
		title = profile.JobTitle
	}
	if location == "" {
		location = profile.Location
	}
	if title == "" {
		return nil, nil, fmt.Errorf("%w: no job title on profile and none given", shared.ErrInvalidInput)
	}
	if r.searcher == nil {
		return nil, nil, fmt.Errorf("%w: job search not initialized", shared.ErrServiceUnavailable)
	}

	postings, err := r.searcher.Search(ctx, title, location, limit)
	if err != nil {
		return nil, nil, err
	}

	return profile, postings, nil
}

// ApplyRun searches for jobs and applies to each, printing progress and a
// final summary.
func (r *Runner) ApplyRun(ctx context.Context, email, title, location string, limit int) error {
	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	profiles := repositories.NewProfileRepository(db)
	profile, postings, err := r.loadBatch(ctx, profiles, email, title, location, limit)
	if err != nil {
		return err
	}

	if len(postings) == 0 {
		r.writePlain("No postings found, nothing to apply to\n")
		return nil
	}

	eng, err := r.newEngine(db)
	if err != nil {
		return err
	}

	progress := make(chan engine.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			if update.Phase == engine.Done {
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			} else {
				r.logger.Debug("progress", "step", update.Step, "phase", update.Phase.String(), "message", update.Message)
			}
		}
	}()

	result, runErr := eng.Run(ctx, profile, postings, progress)
	close(progress)
	<-printed

	if result != nil {
		r.writePlain("\nApplied: %d  Skipped: %d  Failed: %d\n",
			result.SuccessCount, result.SkippedCount, result.FailedCount)
	}
	return runErr
}

// ApplyTUI runs the batch inside the interactive terminal view. Logs go to a
// file because the TUI owns the terminal.
func (r *Runner) ApplyTUI(ctx context.Context, email, title, location string, limit int) error {
	logger, err := shared.NewFileLogger("logs/autoapply.log")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	r.SetLogger(logger)

	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	profiles := repositories.NewProfileRepository(db)
	profile, postings, err := r.loadBatch(ctx, profiles, email, title, location, limit)
	if err != nil {
		return err
	}

	eng, err := r.newEngine(db)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, eng, profile, postings)
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// ApplyHistory lists a user's recorded application attempts.
func (r *Runner) ApplyHistory(ctx context.Context, email string, asJSON bool) error {
	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	attempts, err := repositories.NewAttemptRepository(db).ListByUser(ctx, email)
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(attempts, true)
	}

	if len(attempts) == 0 {
		r.writePlain("No attempts recorded for %s\n", email)
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%d attempts for %s", len(attempts), email))
	for _, attempt := range attempts {
		r.writePlain("%s  %s\n", attempt.CreatedAt.Format("2006-01-02 15:04"), attempt.LogLine())
		if attempt.Warning != "" {
			r.writePlain("    warning: %s\n", attempt.Warning)
		}
	}
	return nil
}
