package models

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how an application attempt ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return ""
	}
}

// Reason explains a Skipped or Failed outcome.
type Reason string

const (
	ReasonQuotaExhausted   Reason = "quota exhausted"
	ReasonInvalidLink      Reason = "invalid link"
	ReasonUnsupportedSite  Reason = "unsupported site"
	ReasonNavigationError  Reason = "navigation error"
	ReasonSubmitTimeout    Reason = "submit timeout"
	ReasonFormFieldMissing Reason = "form field missing"
)

// Outcome is the terminal result of one application attempt.
type Outcome struct {
	Kind   OutcomeKind
	Reason Reason
}

// Success returns a successful outcome.
func Success() Outcome { return Outcome{Kind: OutcomeSuccess} }

// Skip returns a skipped outcome with the given reason.
func Skip(reason Reason) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }

// Fail returns a failed outcome with the given reason.
func Fail(reason Reason) Outcome { return Outcome{Kind: OutcomeFailed, Reason: reason} }

// Attempt is the durable record of a single (user, posting) execution.
// Created exactly once, immutable after creation.
type Attempt struct {
	Posting     JobPosting
	UserID      string
	Outcome     Outcome
	EvidenceRef string
	Warning     string
	CreatedAt   time.Time
}

// OutcomeText renders the attempt's outcome in the batch log format,
// e.g. "Success (screenshot taken)" or "Skipped (invalid link)".
func (a *Attempt) OutcomeText() string {
	switch a.Outcome.Kind {
	case OutcomeSuccess:
		if a.EvidenceRef != "" {
			return "Success (screenshot taken)"
		}
		return "Success"
	case OutcomeSkipped:
		return fmt.Sprintf("Skipped (%s)", a.Outcome.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("Failed (%s)", a.Outcome.Reason)
	default:
		return ""
	}
}

// LogLine renders the batch log entry for this attempt.
func (a *Attempt) LogLine() string {
	return fmt.Sprintf("%s at %s – %s", a.Posting.Title, a.Posting.Company, a.OutcomeText())
}
