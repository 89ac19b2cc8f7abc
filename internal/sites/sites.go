// Package sites contains the per-site application form strategies. Each
// Adapter recognizes one family of application sites by hostname and knows
// which selectors to fill and submit. New families plug into the Registry
// without touching the executor state machine.
package sites

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jobblixor/autoapply/internal/browser"
	"github.com/jobblixor/autoapply/internal/models"
)

// Default bounded waits for locating a form field and for the submit action.
const (
	DefaultFieldTimeout  = 10 * time.Second
	DefaultSubmitTimeout = 15 * time.Second
)

// Adapter recognizes and fills one family of application-form sites.
//
// Fill and Submit together make up the apply flow; they are split so the
// executor can distinguish a missing field from a submit that never
// completed.
type Adapter interface {
	// Name identifies the site family, e.g. "greenhouse".
	Name() string

	// Matches reports whether the rendered page's URL belongs to this family.
	// Matching keys on hostname suffixes, never page content.
	Matches(pageURL *url.URL) bool

	// Fill populates the known field set from the profile. Returns an error
	// wrapping shared.ErrFormFieldMissing when an expected selector is absent.
	Fill(ctx context.Context, page browser.Page, profile *models.Profile) error

	// Submit triggers the form submission within a bounded wait. Returns an
	// error wrapping shared.ErrSubmitTimeout when the action does not
	// complete in time.
	Submit(ctx context.Context, page browser.Page) error
}

// Registry holds adapters in a fixed priority order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry; adapters are evaluated in the given order
// and the first match wins.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry returns the registry of known site families.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewGreenhouse(),
		NewLever(),
	)
}

// Match resolves the adapter for a page URL, or nil when no registered family
// recognizes it. A nil adapter is not an error; the engine records the
// posting as skipped.
func (r *Registry) Match(rawURL string) Adapter {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	for _, a := range r.adapters {
		if a.Matches(u) {
			return a
		}
	}
	return nil
}

// Names lists the registered adapter names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// hostMatches reports whether host equals suffix or is a subdomain of it.
// "boards.greenhouse.io" matches "greenhouse.io"; "notgreenhouse.io" does not.
func hostMatches(host, suffix string) bool {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
