package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// ProfileStore is the narrow contract the ledger needs from the profile
// store.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateCounters(ctx context.Context, userID string, freeUsesLeft, applicationCount int) error
}

// Ledger tracks and spends a user's free-application credits against the
// profile store.
//
// Reserve and Commit form a two-phase spend: the reservation snapshots the
// counters under a per-user lock, and the commit, issued only after a
// confirmed successful submission, persists the decrement. Holding the user
// lock across the whole execution keeps concurrent batches for the same user
// from over-spending a credit; batches for different users do not contend.
type Ledger struct {
	store   ProfileStore
	retries int
	backoff time.Duration
	logger  *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// LedgerOpts configures a Ledger.
type LedgerOpts struct {
	Retries int           // bounded commit retries, default 3
	Backoff time.Duration // wait between retries, default 500ms
	Logger  *log.Logger
}

// NewLedger creates a Ledger over the given profile store.
func NewLedger(store ProfileStore, opts LedgerOpts) *Ledger {
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Ledger{
		store:   store,
		retries: opts.Retries,
		backoff: opts.Backoff,
		logger:  opts.Logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// Reserve takes the user's quota lock and snapshots the counters.
//
// Returns shared.ErrQuotaExhausted when no credits remain; any other error
// means the profile store is unreachable and the caller should treat the
// whole batch as broken. On success the caller must end the reservation with
// exactly one of Commit or Release.
func (l *Ledger) Reserve(ctx context.Context, userID string) (*Reservation, error) {
	lock := l.userLock(userID)
	lock.Lock()

	profile, err := l.store.GetProfile(ctx, userID)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("quota reserve failed: %w", err)
	}

	if profile.FreeUsesLeft <= 0 {
		lock.Unlock()
		return nil, fmt.Errorf("%w: user %s", shared.ErrQuotaExhausted, userID)
	}

	return &Reservation{
		ledger:  l,
		lock:    lock,
		userID:  userID,
		free:    profile.FreeUsesLeft,
		applied: profile.ApplicationCount,
	}, nil
}

// Reservation is one reserved quota unit. It holds the user's quota lock
// until Commit or Release.
type Reservation struct {
	ledger  *Ledger
	lock    *sync.Mutex
	userID  string
	free    int
	applied int
	done    bool
}

// Commit spends the reserved unit: free_uses_left decrements (floored at
// zero) and application_count increments, persisted with bounded retries.
//
// Returns an error wrapping shared.ErrPersistence when the store stays
// unreachable; the submission itself already happened and cannot be
// retracted, so callers report the application as submitted and surface the
// warning. Idempotent alongside Release.
func (r *Reservation) Commit(ctx context.Context) error {
	if r.done {
		return nil
	}
	defer r.release()

	free := r.free - 1
	if free < 0 {
		free = 0
	}
	applied := r.applied + 1

	var err error
	for attempt := 0; attempt < r.ledger.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.ledger.backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", shared.ErrPersistence, ctx.Err())
			}
		}

		err = r.ledger.store.UpdateCounters(ctx, r.userID, free, applied)
		if err == nil {
			return nil
		}
		r.ledger.logger.Warn("quota commit failed, retrying",
			"user", r.userID, "attempt", attempt+1, "error", err)
	}

	return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
}

// Release ends the reservation without spending the unit. Safe to call after
// Commit; the first call wins.
func (r *Reservation) Release() {
	r.release()
}

func (r *Reservation) release() {
	if r.done {
		return
	}
	r.done = true
	r.lock.Unlock()
}
