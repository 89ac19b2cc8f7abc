package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// BatchResult contains everything from one batch run: the ordered attempts,
// the ordered log lines, and outcome tallies.
type BatchResult struct {
	Attempts     []*models.Attempt
	Log          []string
	SuccessCount int
	SkippedCount int
	FailedCount  int
}

// Engine sequences the executor over a batch of job postings for one user
// session.
//
// Postings run strictly sequentially and in order: each execution drives an
// exclusive browser session and mutates the shared quota counters, so
// parallelizing within a batch would race the ledger. Batches for different
// users may run concurrently.
type Engine struct {
	executor *Executor
	logger   *log.Logger
}

// NewEngine creates a batch runner over the given executor.
func NewEngine(executor *Executor, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{executor: executor, logger: logger}
}

// Run executes every posting for the profile, in order, continuing past
// individual failed or skipped outcomes.
//
// Returns an error only for catastrophic setup problems (nil/invalid profile,
// unreachable profile store, browser engine unavailable) or cancellation.
// Cancellation is honored between postings, never mid-fill: an in-flight
// application always reaches a terminal state first, and the partial result
// is returned alongside the context error.
func (e *Engine) Run(ctx context.Context, profile *models.Profile, postings []models.JobPosting, progress chan<- ProgressUpdate) (*BatchResult, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", shared.ErrInvalidInput)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	result := &BatchResult{}
	total := len(postings)
	e.logger.Info("starting batch", "user", profile.UserID, "postings", total)

	for i, posting := range postings {
		if err := ctx.Err(); err != nil {
			e.logger.Info("batch cancelled", "user", profile.UserID, "completed", i, "total", total)
			return result, err
		}

		attempt, err := e.executor.Execute(ctx, profile, posting, i+1, total, progress)
		if err != nil {
			return result, err
		}

		result.Attempts = append(result.Attempts, attempt)
		result.Log = append(result.Log, attempt.LogLine())
		switch attempt.Outcome.Kind {
		case models.OutcomeSuccess:
			result.SuccessCount++
		case models.OutcomeSkipped:
			result.SkippedCount++
		case models.OutcomeFailed:
			result.FailedCount++
		}
	}

	e.logger.Info("batch complete", "user", profile.UserID,
		"success", result.SuccessCount, "skipped", result.SkippedCount, "failed", result.FailedCount)
	return result, nil
}
