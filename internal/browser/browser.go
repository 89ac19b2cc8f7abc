// Package browser abstracts the heavyweight browser sessions the engine
// drives. A Launcher opens one isolated session per job application; a Page is
// the handle adapters fill and submit through. The chromedp implementation
// lives in chrome.go; tests substitute fakes.
package browser

import "context"

// Page is a single isolated browser session scoped to one job application.
// Every Page must be closed on every exit path.
type Page interface {
	// Navigate loads the given URL, honoring ctx deadlines.
	Navigate(ctx context.Context, url string) error

	// Location returns the page's current URL after redirects.
	Location(ctx context.Context) (string, error)

	// Fill waits for the selector to be visible and types the value into it.
	Fill(ctx context.Context, selector, value string) error

	// SetFiles attaches local files to a file input matched by selector.
	SetFiles(ctx context.Context, selector string, paths ...string) error

	// Click clicks the element matched by selector.
	Click(ctx context.Context, selector string) error

	// Screenshot captures the viewport as a PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the session and its underlying browser resources.
	Close() error
}

// Launcher opens isolated browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}
