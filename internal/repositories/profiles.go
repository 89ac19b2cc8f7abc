package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// ProfileRepository persists candidate profiles. It is the engine's profile
// store: GetProfile and UpdateCounters back the quota ledger's two-phase
// reserve/commit, and the CRUD surface serves the CLI and HTTP layers.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	id, sequence, email, first_name, last_name, phone, job_title, location,
	salary, resume_path, photo_path, plan_id, subscription_status,
	free_uses_left, application_count, created_at, updated_at, deleted_at
`

// Create inserts a new profile with a generated ID and sequence.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "profiles")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	profile.SetID(shared.GenerateID())
	now := time.Now().UTC()
	profile.SetCreatedAt(now)
	profile.SetUpdatedAt(now)

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.ExecContext(ctx, query,
		profile.ID(), sequence, profile.UserID, profile.FirstName, profile.LastName,
		profile.Phone, profile.JobTitle, profile.Location, profile.Salary,
		profile.ResumeRef, profile.PhotoRef, profile.PlanID, profile.SubscriptionStatus,
		profile.FreeUsesLeft, profile.ApplicationCount, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// GetProfile retrieves a profile by its email-shaped user ID, excluding
// soft-deleted profiles.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE email = ? AND deleted_at IS NULL
	`

	row := r.db.QueryRowContext(ctx, query, userID)
	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return profile, nil
}

// Update modifies the mutable non-counter fields of an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	profile.SetUpdatedAt(now)

	query := `
		UPDATE profiles
		SET first_name = ?, last_name = ?, phone = ?, job_title = ?,
			location = ?, salary = ?, resume_path = ?, photo_path = ?,
			updated_at = ?
		WHERE email = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.FirstName, profile.LastName, profile.Phone, profile.JobTitle,
		profile.Location, profile.Salary, profile.ResumeRef, profile.PhotoRef,
		now, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, profile.UserID)
	}

	return nil
}

// UpdateCounters persists the quota counters for a user. Called by the ledger
// only after a confirmed successful submission.
func (r *ProfileRepository) UpdateCounters(ctx context.Context, userID string, freeUsesLeft, applicationCount int) error {
	if freeUsesLeft < 0 || applicationCount < 0 {
		return fmt.Errorf("%w: counters cannot be negative", shared.ErrInvalidInput)
	}

	query := `
		UPDATE profiles
		SET free_uses_left = ?, application_count = ?, updated_at = ?
		WHERE email = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, freeUsesLeft, applicationCount, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update counters: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}

	return nil
}

// Delete soft-deletes a profile by user ID.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	query := `
		UPDATE profiles
		SET deleted_at = ?
		WHERE email = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}

	return nil
}

// List retrieves all profiles, excluding soft-deleted ones, ordered by sequence.
func (r *ProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return profiles, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	var (
		p         models.Profile
		id        string
		sequence  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &p.UserID, &p.FirstName, &p.LastName,
		&p.Phone, &p.JobTitle, &p.Location, &p.Salary,
		&p.ResumeRef, &p.PhotoRef, &p.PlanID, &p.SubscriptionStatus,
		&p.FreeUsesLeft, &p.ApplicationCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	p.SetID(id)
	p.SetCreatedAt(createdAt)
	p.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		p.SetDeletedAt(&deletedAt.Time)
	}

	return &p, nil
}
