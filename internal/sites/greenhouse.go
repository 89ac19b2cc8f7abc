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

// Greenhouse fills Greenhouse-hosted application forms (boards.greenhouse.io
// and friends). Field names are stable across Greenhouse job boards.
type Greenhouse struct {
	fieldTimeout  time.Duration
	submitTimeout time.Duration
}

// NewGreenhouse creates the adapter with default bounded waits.
func NewGreenhouse() *Greenhouse {
	return &Greenhouse{
		fieldTimeout:  DefaultFieldTimeout,
		submitTimeout: DefaultSubmitTimeout,
	}
}

func (g *Greenhouse) Name() string { return "greenhouse" }

func (g *Greenhouse) Matches(pageURL *url.URL) bool {
	return hostMatches(pageURL.Host, "greenhouse.io")
}

// Fill populates the standard Greenhouse field set: name, email, phone, and
// the resume file. The profile photo is attached best-effort; most boards
// have no photo input.
func (g *Greenhouse) Fill(ctx context.Context, page browser.Page, profile *models.Profile) error {
	fields := []struct {
		selector string
		value    string
	}{
		{"input[name='first_name']", profile.FirstName},
		{"input[name='last_name']", profile.LastName},
		{"input[type='email']", profile.UserID},
		{"input[type='tel']", profile.Phone},
	}

	for _, f := range fields {
		if err := g.fill(ctx, page, f.selector, f.value); err != nil {
			return err
		}
	}

	if profile.ResumeRef != "" {
		fctx, cancel := context.WithTimeout(ctx, g.fieldTimeout)
		err := page.SetFiles(fctx, "input[type='file']", profile.ResumeRef)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: input[type='file']", shared.ErrFormFieldMissing)
		}
	}

	if profile.PhotoRef != "" {
		fctx, cancel := context.WithTimeout(ctx, g.fieldTimeout)
		_ = page.SetFiles(fctx, "input[name='profile_photo']", profile.PhotoRef)
		cancel()
	}

	return nil
}

func (g *Greenhouse) fill(ctx context.Context, page browser.Page, selector, value string) error {
	fctx, cancel := context.WithTimeout(ctx, g.fieldTimeout)
	defer cancel()
	if err := page.Fill(fctx, selector, value); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrFormFieldMissing, selector)
	}
	return nil
}

// Submit clicks the submit button within the bounded wait.
func (g *Greenhouse) Submit(ctx context.Context, page browser.Page) error {
	sctx, cancel := context.WithTimeout(ctx, g.submitTimeout)
	defer cancel()
	if err := page.Click(sctx, "button[type='submit']"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: submit did not complete within %s", shared.ErrSubmitTimeout, g.submitTimeout)
		}
		return fmt.Errorf("%w: button[type='submit']", shared.ErrFormFieldMissing)
	}
	return nil
}
