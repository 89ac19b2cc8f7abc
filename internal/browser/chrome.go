package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromeLauncher launches headless Chrome sessions via chromedp.
//
// Each Launch spawns a fresh browser process with its own user data dir so
// cookie state never leaks between job applications.
type ChromeLauncher struct {
	Headless    bool
	UserDataDir string
}

// NewChromeLauncher creates a launcher. userDataDir may be empty, in which
// case Chrome uses a throwaway temporary profile.
func NewChromeLauncher(headless bool, userDataDir string) *ChromeLauncher {
	return &ChromeLauncher{Headless: headless, UserDataDir: userDataDir}
}

// Launch starts a browser session and verifies the browser process came up.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !l.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(l.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}

	// Force the browser process to start so launch failures surface here,
	// not in the middle of a form fill.
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &chromePage{ctx: taskCtx, cancel: cancel}, nil
}

// chromePage implements Page over a chromedp context.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes chromedp actions, carrying the caller's deadline onto the
// session context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (p *chromePage) SetFiles(ctx context.Context, selector string, paths ...string) error {
	return p.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
