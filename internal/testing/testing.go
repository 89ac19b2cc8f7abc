// package testing contains shared testing utilities
package testing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jobblixor/autoapply/internal/browser"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
)

// FakePage is a scripted test double for [browser.Page]. Zero values behave
// like a page where everything works.
type FakePage struct {
	NavigateErr   error
	LocationValue string
	LocationErr   error
	FillErr       map[string]error // per-selector fill errors
	SetFilesErr   error
	ClickErr      error
	Shot          []byte
	ShotErr       error

	Filled    map[string]string
	Files     map[string][]string
	Clicked   []string
	Navigated []string
	Closed    bool
}

func NewFakePage() *FakePage {
	return &FakePage{
		FillErr: map[string]error{},
		Filled:  map[string]string{},
		Files:   map[string][]string{},
		Shot:    []byte("png"),
	}
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.Navigated = append(p.Navigated, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	if p.LocationValue == "" {
		p.LocationValue = url
	}
	return ctx.Err()
}

func (p *FakePage) Location(ctx context.Context) (string, error) {
	return p.LocationValue, p.LocationErr
}

func (p *FakePage) Fill(ctx context.Context, selector, value string) error {
	if err := p.FillErr[selector]; err != nil {
		return err
	}
	p.Filled[selector] = value
	return nil
}

func (p *FakePage) SetFiles(ctx context.Context, selector string, paths ...string) error {
	if p.SetFilesErr != nil {
		return p.SetFilesErr
	}
	p.Files[selector] = paths
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	if p.ClickErr != nil {
		return p.ClickErr
	}
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.Shot, p.ShotErr
}

func (p *FakePage) Close() error {
	p.Closed = true
	return nil
}

// FakeLauncher hands out scripted pages in order and counts launches.
type FakeLauncher struct {
	Pages     []*FakePage
	LaunchErr error
	Launches  int
}

func (l *FakeLauncher) Launch(ctx context.Context) (browser.Page, error) {
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	if l.Launches >= len(l.Pages) {
		return nil, fmt.Errorf("no scripted page for launch %d", l.Launches+1)
	}
	page := l.Pages[l.Launches]
	l.Launches++
	return page, nil
}

// MemoryProfiles is an in-memory profile store implementing the ledger's
// ProfileStore contract plus the CRUD surface the server needs.
type MemoryProfiles struct {
	mu       sync.Mutex
	Profiles map[string]*models.Profile

	GetErr         error
	UpdateErr      error
	UpdateErrTimes int // fail UpdateCounters this many times, then succeed
	CounterUpdates int
}

func NewMemoryProfiles(profiles ...*models.Profile) *MemoryProfiles {
	m := &MemoryProfiles{Profiles: map[string]*models.Profile{}}
	for _, p := range profiles {
		m.Profiles[p.UserID] = p
	}
	return m
}

func (m *MemoryProfiles) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	clone := *p
	return &clone, nil
}

func (m *MemoryProfiles) UpdateCounters(ctx context.Context, userID string, freeUsesLeft, applicationCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil && (m.UpdateErrTimes <= 0 || m.CounterUpdates < m.UpdateErrTimes) {
		m.CounterUpdates++
		return m.UpdateErr
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, userID)
	}
	p.FreeUsesLeft = freeUsesLeft
	p.ApplicationCount = applicationCount
	m.CounterUpdates++
	return nil
}

func (m *MemoryProfiles) Create(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profiles[profile.UserID] = profile
	return nil
}

func (m *MemoryProfiles) Update(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Profiles[profile.UserID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, profile.UserID)
	}
	m.Profiles[profile.UserID] = profile
	return nil
}

// MemoryRecorder collects attempts in memory.
type MemoryRecorder struct {
	mu        sync.Mutex
	Attempts  []*models.Attempt
	RecordErr error
}

func (m *MemoryRecorder) Record(ctx context.Context, attempt *models.Attempt) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, attempt)
	return nil
}

// MemoryEvidence stores screenshots in memory and returns "mem://<key>" refs.
type MemoryEvidence struct {
	Saved   map[string][]byte
	SaveErr error
}

func NewMemoryEvidence() *MemoryEvidence {
	return &MemoryEvidence{Saved: map[string][]byte{}}
}

func (m *MemoryEvidence) Save(ctx context.Context, key string, png []byte) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	m.Saved[key] = png
	return "mem://" + key, nil
}

// FWriter is an io.Writer that always fails.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("write failed")
}

// LimitedWriter fails after a set number of writes.
type LimitedWriter struct {
	writesLeft int
	inner      io.Writer
}

func NewLimitedWriter(writes int, inner io.Writer) LimitedWriter {
	return LimitedWriter{writesLeft: writes, inner: inner}
}

func (w *LimitedWriter) Write(p []byte) (int, error) {
	if w.writesLeft <= 0 {
		return 0, fmt.Errorf("write limit reached")
	}
	w.writesLeft--
	return w.inner.Write(p)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
