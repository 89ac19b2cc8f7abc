package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// JobPosting is a discovered job with an application link. Immutable once
// discovered; postings without a well-formed absolute URL are skipped before
// any browser work happens.
type JobPosting struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	ApplyURL string `json:"link"`
}

// ValidLink reports whether the posting's apply URL is an absolute http(s) URL.
func (j JobPosting) ValidLink() bool {
	if j.ApplyURL == "" {
		return false
	}
	u, err := url.Parse(j.ApplyURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Profile is a candidate profile. The engine reads the contact and resume
// fields and reads-then-writes FreeUsesLeft and ApplicationCount; everything
// else belongs to the profile store.
type Profile struct {
	UserID             string // email-shaped, unique
	FirstName          string
	LastName           string
	Phone              string
	JobTitle           string
	Location           string
	Salary             string
	ResumeRef          string
	PhotoRef           string
	PlanID             string
	SubscriptionStatus string
	FreeUsesLeft       int
	ApplicationCount   int

	id        string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewProfile creates a Profile with timestamps initialized to now.
func NewProfile(userID, firstName, lastName string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		UserID:             userID,
		FirstName:          firstName,
		LastName:           lastName,
		PlanID:             "free",
		SubscriptionStatus: "active",
		createdAt:          now,
		updatedAt:          now,
	}
}

func (p *Profile) ID() string            { return p.id }
func (p *Profile) CreatedAt() time.Time  { return p.createdAt }
func (p *Profile) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Profile) DeletedAt() *time.Time { return p.deletedAt }

func (p *Profile) SetID(id string)             { p.id = id }
func (p *Profile) SetCreatedAt(t time.Time)    { p.createdAt = t }
func (p *Profile) SetUpdatedAt(t time.Time)    { p.updatedAt = t }
func (p *Profile) SetDeletedAt(t *time.Time)   { p.deletedAt = t }
func (p *Profile) FullName() string            { return p.FirstName + " " + p.LastName }

// Validate checks the fields the engine depends on.
func (p *Profile) Validate() error {
	if !strings.Contains(p.UserID, "@") || !strings.Contains(p.UserID, ".") {
		return fmt.Errorf("user id must be email-shaped: %q", p.UserID)
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}
	if p.FreeUsesLeft < 0 {
		return fmt.Errorf("free uses left cannot be negative")
	}
	if p.ApplicationCount < 0 {
		return fmt.Errorf("application count cannot be negative")
	}
	return nil
}
