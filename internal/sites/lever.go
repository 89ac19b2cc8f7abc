package sites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jobblixor/autoapply/internal/browser"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// Lever fills Lever-hosted application forms (jobs.lever.co). Lever uses a
// single full-name field rather than split first/last inputs.
type Lever struct {
	fieldTimeout  time.Duration
	submitTimeout time.Duration
}

// NewLever creates the adapter with default bounded waits.
func NewLever() *Lever {
	return &Lever{
		fieldTimeout:  DefaultFieldTimeout,
		submitTimeout: DefaultSubmitTimeout,
	}
}

func (l *Lever) Name() string { return "lever" }

func (l *Lever) Matches(pageURL *url.URL) bool {
	return hostMatches(pageURL.Host, "jobs.lever.co")
}

func (l *Lever) Fill(ctx context.Context, page browser.Page, profile *models.Profile) error {
	fields := []struct {
		selector string
		value    string
	}{
		{"input[name='name']", profile.FullName()},
		{"input[name='email']", profile.UserID},
		{"input[name='phone']", profile.Phone},
	}

	for _, f := range fields {
		fctx, cancel := context.WithTimeout(ctx, l.fieldTimeout)
		err := page.Fill(fctx, f.selector, f.value)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %s", shared.ErrFormFieldMissing, f.selector)
		}
	}

	if profile.ResumeRef != "" {
		fctx, cancel := context.WithTimeout(ctx, l.fieldTimeout)
		err := page.SetFiles(fctx, "input[name='resume']", profile.ResumeRef)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: input[name='resume']", shared.ErrFormFieldMissing)
		}
	}

	return nil
}

func (l *Lever) Submit(ctx context.Context, page browser.Page) error {
	sctx, cancel := context.WithTimeout(ctx, l.submitTimeout)
	defer cancel()
	if err := page.Click(sctx, "button[type='submit']"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: submit did not complete within %s", shared.ErrSubmitTimeout, l.submitTimeout)
		}
		return fmt.Errorf("%w: button[type='submit']", shared.ErrFormFieldMissing)
	}
	return nil
}
