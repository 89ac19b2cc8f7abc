package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/browser"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/jobblixor/autoapply/internal/sites"
)

// Recorder persists the durable record of each attempt.
type Recorder interface {
	Record(ctx context.Context, attempt *models.Attempt) error
}

// EvidenceStore saves post-submission screenshots and returns a reference.
type EvidenceStore interface {
	Save(ctx context.Context, key string, png []byte) (string, error)
}

// Executor drives one job posting through the apply state machine:
// reserve quota, navigate, identify the site adapter, fill and submit,
// capture evidence, record the outcome, and commit the quota spend.
type Executor struct {
	ledger     *Ledger
	registry   *sites.Registry
	launcher   browser.Launcher
	recorder   Recorder
	evidence   EvidenceStore
	navTimeout time.Duration
	logger     *log.Logger
}

// ExecutorOpts contains the executor's collaborators and tunables.
type ExecutorOpts struct {
	Ledger            *Ledger
	Registry          *sites.Registry
	Launcher          browser.Launcher
	Recorder          Recorder
	Evidence          EvidenceStore
	NavigationTimeout time.Duration // default 60s
	Logger            *log.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(opts ExecutorOpts) *Executor {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Executor{
		ledger:     opts.Ledger,
		registry:   opts.Registry,
		launcher:   opts.Launcher,
		recorder:   opts.Recorder,
		evidence:   opts.Evidence,
		navTimeout: opts.NavigationTimeout,
		logger:     opts.Logger,
	}
}

// Execute runs one posting to a terminal state and returns the recorded
// attempt.
//
// Per-posting problems (bad link, exhausted quota, unmatched site, adapter
// errors) come back as outcome values on the attempt with a nil error. A
// non-nil error means the batch itself is broken: the profile store could not
// be read or the browser engine could not start.
func (e *Executor) Execute(ctx context.Context, profile *models.Profile, posting models.JobPosting, step, total int, progress chan<- ProgressUpdate) (*models.Attempt, error) {
	attempt := &models.Attempt{
		Posting:   posting,
		UserID:    profile.UserID,
		CreatedAt: time.Now().UTC(),
	}
	logger := e.logger.With("user", profile.UserID, "title", posting.Title, "company", posting.Company)

	sendProgress(progress, pendingUpdate(step, total, posting))

	// Link validation costs nothing, so it precedes the quota reservation:
	// an unusable posting never spends a browser session or a credit.
	if !posting.ValidLink() {
		logger.Info("skipping posting with invalid link", "url", posting.ApplyURL)
		return e.finish(ctx, attempt, models.Skip(models.ReasonInvalidLink), step, total, progress), nil
	}

	sendProgress(progress, phaseUpdate(Reserving, step, total, "Reserving application credit..."))
	reservation, err := e.ledger.Reserve(ctx, profile.UserID)
	if errors.Is(err, shared.ErrQuotaExhausted) {
		logger.Info("quota exhausted, skipping without opening a session")
		return e.finish(ctx, attempt, models.Skip(models.ReasonQuotaExhausted), step, total, progress), nil
	}
	if err != nil {
		return nil, err
	}
	defer reservation.Release()

	page, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrBrowserUnavailable, err)
	}
	defer page.Close()

	sendProgress(progress, phaseUpdate(Navigating, step, total, fmt.Sprintf("Visiting %s...", posting.ApplyURL)))
	navCtx, cancel := context.WithTimeout(ctx, e.navTimeout)
	err = page.Navigate(navCtx, posting.ApplyURL)
	cancel()
	if err != nil {
		logger.Info("apply page unreachable", "url", posting.ApplyURL, "error", err)
		return e.finish(ctx, attempt, models.Skip(models.ReasonInvalidLink), step, total, progress), nil
	}

	sendProgress(progress, phaseUpdate(Identifying, step, total, "Identifying site family..."))
	location, err := page.Location(ctx)
	if err != nil || location == "" {
		location = posting.ApplyURL
	}
	adapter := e.registry.Match(location)
	if adapter == nil {
		logger.Info("no adapter matched", "location", location)
		return e.finish(ctx, attempt, models.Skip(models.ReasonUnsupportedSite), step, total, progress), nil
	}
	logger.Debug("adapter matched", "adapter", adapter.Name())

	sendProgress(progress, phaseUpdate(Filling, step, total, fmt.Sprintf("Filling %s form...", adapter.Name())))
	if err := adapter.Fill(ctx, page, profile); err != nil {
		logger.Warn("form fill failed", "adapter", adapter.Name(), "error", err)
		return e.finish(ctx, attempt, models.Fail(reasonFor(err)), step, total, progress), nil
	}

	sendProgress(progress, phaseUpdate(Submitting, step, total, "Submitting application..."))
	if err := adapter.Submit(ctx, page); err != nil {
		logger.Warn("submit failed", "adapter", adapter.Name(), "error", err)
		return e.finish(ctx, attempt, models.Fail(reasonFor(err)), step, total, progress), nil
	}

	sendProgress(progress, phaseUpdate(Evidencing, step, total, "Capturing screenshot..."))
	attempt.EvidenceRef = e.capture(ctx, page, posting, logger)

	attempt.Outcome = models.Success()

	// The form is already out the door; a commit failure downgrades to a
	// warning on an otherwise successful attempt.
	if err := reservation.Commit(ctx); err != nil {
		logger.Warn("application submitted but quota update failed", "error", err)
		attempt.Warning = "submitted but quota update failed"
	}

	sendProgress(progress, phaseUpdate(Recording, step, total, "Recording outcome..."))
	e.record(ctx, attempt, logger)
	sendProgress(progress, doneUpdate(step, total, attempt))
	return attempt, nil
}

// finish stamps a terminal outcome, records the attempt, and emits the done
// update.
func (e *Executor) finish(ctx context.Context, attempt *models.Attempt, outcome models.Outcome, step, total int, progress chan<- ProgressUpdate) *models.Attempt {
	attempt.Outcome = outcome
	e.record(ctx, attempt, e.logger)
	sendProgress(progress, doneUpdate(step, total, attempt))
	return attempt
}

// capture takes the audit screenshot. Failures only cost the evidence
// reference, never the outcome.
func (e *Executor) capture(ctx context.Context, page browser.Page, posting models.JobPosting, logger *log.Logger) string {
	png, err := page.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot capture failed", "error", err)
		return ""
	}
	ref, err := e.evidence.Save(ctx, shared.EvidenceKey(posting.Title, posting.Company), png)
	if err != nil {
		logger.Warn("screenshot save failed", "error", err)
		return ""
	}
	return ref
}

func (e *Executor) record(ctx context.Context, attempt *models.Attempt, logger *log.Logger) {
	if err := e.recorder.Record(ctx, attempt); err != nil {
		logger.Warn("failed to record attempt", "error", err)
	}
}

// reasonFor maps adapter errors onto the failure taxonomy.
func reasonFor(err error) models.Reason {
	switch {
	case errors.Is(err, shared.ErrSubmitTimeout):
		return models.ReasonSubmitTimeout
	case errors.Is(err, shared.ErrFormFieldMissing):
		return models.ReasonFormFieldMissing
	default:
		return models.ReasonNavigationError
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
