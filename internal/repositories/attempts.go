package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// AttemptRepository persists application attempts. Attempts are insert-only:
// once recorded an outcome is never rewritten.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new [AttemptRepository] with the given database connection
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record inserts the attempt. Implements the engine's outcome recorder.
func (r *AttemptRepository) Record(ctx context.Context, attempt *models.Attempt) error {
	sequence, err := NextSequence(r.db, "attempts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO attempts (
			id, sequence, user_email, job_title, company, apply_url,
			outcome, reason, evidence_path, warning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		shared.GenerateID(), sequence, attempt.UserID,
		attempt.Posting.Title, attempt.Posting.Company, attempt.Posting.ApplyURL,
		attempt.Outcome.Kind.String(), string(attempt.Outcome.Reason),
		attempt.EvidenceRef, attempt.Warning, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's attempts, most recent first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string) ([]*models.Attempt, error) {
	query := `
		SELECT user_email, job_title, company, apply_url,
			outcome, reason, evidence_path, warning, created_at
		FROM attempts
		WHERE user_email = ?
		ORDER BY sequence DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		var (
			a       models.Attempt
			outcome string
			reason  string
		)
		err := rows.Scan(&a.UserID, &a.Posting.Title, &a.Posting.Company, &a.Posting.ApplyURL,
			&outcome, &reason, &a.EvidenceRef, &a.Warning, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Outcome = parseOutcome(outcome, reason)
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return attempts, nil
}

// CountByOutcome returns the number of a user's attempts with the given outcome kind.
func (r *AttemptRepository) CountByOutcome(ctx context.Context, userID string, kind models.OutcomeKind) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attempts WHERE user_email = ? AND outcome = ?",
		userID, kind.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

func parseOutcome(outcome, reason string) models.Outcome {
	switch outcome {
	case models.OutcomeSuccess.String():
		return models.Success()
	case models.OutcomeSkipped.String():
		return models.Skip(models.Reason(reason))
	default:
		return models.Fail(models.Reason(reason))
	}
}
