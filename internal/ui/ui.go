// Package ui implements the interactive terminal view for watching an
// auto-apply batch run: a confirmation screen, a live progress screen fed by
// the engine's progress channel, and a final summary.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jobblixor/autoapply/internal/engine"
	"github.com/jobblixor/autoapply/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	RunView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   *engine.Engine
	profile  *models.Profile
	postings []models.JobPosting

	spinner      spinner.Model
	progressChan chan engine.ProgressUpdate
	current      engine.ProgressUpdate
	lines        []string
	result       *engine.BatchResult
	err          error
}

type progressUpdateMsg engine.ProgressUpdate

type batchCompleteMsg struct {
	result *engine.BatchResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, eng *engine.Engine, profile *models.Profile, postings []models.JobPosting) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title
	return &Model{
		ctx:      ctx,
		view:     ConfirmView,
		engine:   eng,
		profile:  profile,
		postings: postings,
		spinner:  sp,
	}
}

// Init implements [tea.Model].
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			switch msg.String() {
			case "q", "ctrl+c", "n":
				return m, tea.Quit
			case "y", "enter":
				m.view = RunView
				return m, m.startBatch()
			}
		case RunView:
			if msg.String() == "ctrl+c" {
				// The engine honors cancellation between postings; quitting
				// here would leak the in-flight session, so just quit the
				// program and let the deferred context cancel do the rest.
				return m, tea.Quit
			}
		case ResultView:
			switch msg.String() {
			case "q", "ctrl+c", "enter":
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.current = engine.ProgressUpdate(msg)
		if m.current.Phase == engine.Done {
			m.lines = append(m.lines, m.current.Message)
		}
		return m, m.waitForProgress()

	case batchCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startBatch() tea.Cmd {
	m.progressChan = make(chan engine.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.Run(m.ctx, m.profile, m.postings, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return batchCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Apply to %d jobs as %s?", len(m.postings), m.profile.UserID))

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i, posting := range m.postings {
		b.WriteString(fmt.Sprintf("  %d. %s at %s\n", i+1, posting.Title, posting.Company))
	}
	b.WriteString(fmt.Sprintf("\nFree applications left: %d\n\n", m.profile.FreeUsesLeft))
	b.WriteString(styles.help.Render("y: start • n/q: quit"))
	return b.String()
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Auto-apply in progress")

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, line := range m.lines {
		b.WriteString(renderLogLine(line) + "\n")
	}
	b.WriteString(fmt.Sprintf("\n%s %s\n", m.spinner.View(), m.current.Message))
	return b.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Batch failed: %v", m.err)) + "\n\n" + styles.help.Render("q: quit")
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + styles.help.Render("q: quit")
	}

	title := styles.ok.Render("✓ Batch complete")
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, line := range m.result.Log {
		b.WriteString(renderLogLine(line) + "\n")
	}
	b.WriteString(fmt.Sprintf("\nApplied: %d  Skipped: %d  Failed: %d\n\n",
		m.result.SuccessCount, m.result.SkippedCount, m.result.FailedCount))
	b.WriteString(styles.help.Render("q: quit"))
	return b.String()
}

func renderLogLine(line string) string {
	switch {
	case strings.Contains(line, "– Success"):
		return styles.ok.Render("  ✓ ") + line
	case strings.Contains(line, "– Failed"):
		return styles.err.Render("  ✗ ") + line
	default:
		return styles.warn.Render("  - ") + line
	}
}
