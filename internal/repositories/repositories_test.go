package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func testProfile(email string) *models.Profile {
	p := models.NewProfile(email, "Jane", "Doe")
	p.Phone = "555-0100"
	p.JobTitle = "Backend Engineer"
	p.Location = "Berlin"
	p.FreeUsesLeft = 5
	return p
}

func TestNextSequence(t *testing.T) {
	db := testDB(t)

	first, err := NextSequence(db, "profiles")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "profiles")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected sequence to increment, got %d then %d", first, second)
	}
}

func TestProfileRepository(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		created := testProfile("jane@example.com")
		if err := repo.Create(context.Background(), created); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if created.ID() == "" {
			t.Error("expected create to assign an ID")
		}

		got, err := repo.GetProfile(context.Background(), "jane@example.com")
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if got.FullName() != "Jane Doe" || got.Phone != "555-0100" {
			t.Errorf("unexpected profile %+v", got)
		}
		if got.FreeUsesLeft != 5 || got.ApplicationCount != 0 {
			t.Errorf("unexpected counters %d/%d", got.FreeUsesLeft, got.ApplicationCount)
		}
		if got.PlanID != "free" || got.SubscriptionStatus != "active" {
			t.Errorf("unexpected plan fields %q/%q", got.PlanID, got.SubscriptionStatus)
		}
	})

	t.Run("create rejects invalid profiles", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		bad := models.NewProfile("not-an-email", "Jane", "Doe")
		if err := repo.Create(context.Background(), bad); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		if err := repo.Create(context.Background(), testProfile("jane@example.com")); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if err := repo.Create(context.Background(), testProfile("jane@example.com")); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("get missing profile", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		_, err := repo.GetProfile(context.Background(), "nobody@example.com")
		if !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("update preserves counters", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		profile := testProfile("jane@example.com")
		if err := repo.Create(context.Background(), profile); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if err := repo.UpdateCounters(context.Background(), "jane@example.com", 2, 3); err != nil {
			t.Fatalf("failed to update counters: %v", err)
		}

		profile.JobTitle = "Staff Engineer"
		profile.FreeUsesLeft = 99 // must be ignored by Update
		if err := repo.Update(context.Background(), profile); err != nil {
			t.Fatalf("failed to update profile: %v", err)
		}

		got, err := repo.GetProfile(context.Background(), "jane@example.com")
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if got.JobTitle != "Staff Engineer" {
			t.Errorf("expected updated job title, got %q", got.JobTitle)
		}
		if got.FreeUsesLeft != 2 || got.ApplicationCount != 3 {
			t.Errorf("update must not touch counters, got %d/%d", got.FreeUsesLeft, got.ApplicationCount)
		}
	})

	t.Run("update counters", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		if err := repo.Create(context.Background(), testProfile("jane@example.com")); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}

		if err := repo.UpdateCounters(context.Background(), "jane@example.com", 4, 1); err != nil {
			t.Fatalf("failed to update counters: %v", err)
		}

		got, _ := repo.GetProfile(context.Background(), "jane@example.com")
		if got.FreeUsesLeft != 4 || got.ApplicationCount != 1 {
			t.Errorf("expected counters 4/1, got %d/%d", got.FreeUsesLeft, got.ApplicationCount)
		}

		if err := repo.UpdateCounters(context.Background(), "jane@example.com", -1, 0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for negative counters, got %v", err)
		}
		if err := repo.UpdateCounters(context.Background(), "nobody@example.com", 1, 1); !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("soft delete hides the profile", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		if err := repo.Create(context.Background(), testProfile("jane@example.com")); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if err := repo.Delete(context.Background(), "jane@example.com"); err != nil {
			t.Fatalf("failed to delete profile: %v", err)
		}

		if _, err := repo.GetProfile(context.Background(), "jane@example.com"); !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected deleted profile to be hidden, got %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 1 {
			t.Errorf("soft delete must keep the row, got %d rows", count)
		}
	})

	t.Run("list ordered by sequence", func(t *testing.T) {
		db := testDB(t)
		repo := NewProfileRepository(db)

		for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			if err := repo.Create(context.Background(), testProfile(email)); err != nil {
				t.Fatalf("failed to create profile: %v", err)
			}
		}

		profiles, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("failed to list profiles: %v", err)
		}
		if len(profiles) != 3 {
			t.Fatalf("expected 3 profiles, got %d", len(profiles))
		}
		if profiles[0].UserID != "a@example.com" || profiles[2].UserID != "c@example.com" {
			t.Error("profiles out of insertion order")
		}
	})
}

func TestAttemptRepository(t *testing.T) {
	posting := models.JobPosting{
		Title:    "Backend Engineer",
		Company:  "Acme",
		ApplyURL: "https://boards.greenhouse.io/acme/jobs/1",
	}

	t.Run("record and list", func(t *testing.T) {
		db := testDB(t)
		repo := NewAttemptRepository(db)

		attempts := []*models.Attempt{
			{Posting: posting, UserID: "jane@example.com", Outcome: models.Success(),
				EvidenceRef: "screenshots/Backend_Engineer_Acme.png", CreatedAt: time.Now().UTC()},
			{Posting: posting, UserID: "jane@example.com", Outcome: models.Skip(models.ReasonInvalidLink)},
			{Posting: posting, UserID: "jane@example.com", Outcome: models.Fail(models.ReasonSubmitTimeout),
				Warning: "submitted but quota update failed"},
		}
		for _, a := range attempts {
			if err := repo.Record(context.Background(), a); err != nil {
				t.Fatalf("failed to record attempt: %v", err)
			}
		}

		got, err := repo.ListByUser(context.Background(), "jane@example.com")
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(got))
		}

		// Most recent first.
		if got[0].Outcome.Kind != models.OutcomeFailed || got[0].Warning == "" {
			t.Errorf("unexpected newest attempt %+v", got[0])
		}
		if got[2].Outcome.Kind != models.OutcomeSuccess {
			t.Errorf("unexpected oldest attempt %+v", got[2])
		}
		if got[1].Outcome.Reason != models.ReasonInvalidLink {
			t.Errorf("expected reason round-trip, got %q", got[1].Outcome.Reason)
		}
		if got[2].EvidenceRef != "screenshots/Backend_Engineer_Acme.png" {
			t.Errorf("expected evidence ref round-trip, got %q", got[2].EvidenceRef)
		}
	})

	t.Run("list scoped to user", func(t *testing.T) {
		db := testDB(t)
		repo := NewAttemptRepository(db)

		if err := repo.Record(context.Background(), &models.Attempt{
			Posting: posting, UserID: "jane@example.com", Outcome: models.Success(),
		}); err != nil {
			t.Fatalf("failed to record attempt: %v", err)
		}

		got, err := repo.ListByUser(context.Background(), "other@example.com")
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no attempts for other user, got %d", len(got))
		}
	})

	t.Run("count by outcome", func(t *testing.T) {
		db := testDB(t)
		repo := NewAttemptRepository(db)

		outcomes := []models.Outcome{
			models.Success(), models.Success(),
			models.Skip(models.ReasonQuotaExhausted),
			models.Fail(models.ReasonFormFieldMissing),
		}
		for _, o := range outcomes {
			if err := repo.Record(context.Background(), &models.Attempt{
				Posting: posting, UserID: "jane@example.com", Outcome: o,
			}); err != nil {
				t.Fatalf("failed to record attempt: %v", err)
			}
		}

		for kind, want := range map[models.OutcomeKind]int{
			models.OutcomeSuccess: 2,
			models.OutcomeSkipped: 1,
			models.OutcomeFailed:  1,
		} {
			got, err := repo.CountByOutcome(context.Background(), "jane@example.com", kind)
			if err != nil {
				t.Fatalf("failed to count attempts: %v", err)
			}
			if got != want {
				t.Errorf("count for %s = %d, want %d", kind, got, want)
			}
		}
	})
}
