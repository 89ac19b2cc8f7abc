package engine

import (
	"fmt"

	"github.com/jobblixor/autoapply/internal/models"
)

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Executor state machine phase
	Step    int    // Current posting number within the batch
	Total   int    // Total postings in the batch
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the executor's state machine states.
type Phase int

const (
	Pending Phase = iota
	Reserving
	Navigating
	Identifying
	Filling
	Submitting
	Evidencing
	Recording
	Done
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Reserving:
		return "reserving"
	case Navigating:
		return "navigating"
	case Identifying:
		return "identifying"
	case Filling:
		return "filling"
	case Submitting:
		return "submitting"
	case Evidencing:
		return "evidencing"
	case Recording:
		return "recording"
	case Done:
		return "done"
	default:
		return ""
	}
}

func pendingUpdate(step, total int, posting models.JobPosting) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Pending,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s at %s", step, total, posting.Title, posting.Company),
		Data:    posting,
	}
}

func phaseUpdate(phase Phase, step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

func doneUpdate(step, total int, attempt *models.Attempt) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    step,
		Total:   total,
		Message: attempt.LogLine(),
		Data:    attempt,
	}
}
