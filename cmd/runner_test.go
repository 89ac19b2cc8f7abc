package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
	apptest "github.com/jobblixor/autoapply/internal/testing"
)

type stubSearcher struct {
	postings []models.JobPosting
	err      error
}

func (s *stubSearcher) Search(ctx context.Context, query, location string, limit int) ([]models.JobPosting, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.postings, nil
}

// testRunner wires a Runner over an in-memory database and fake collaborators.
func testRunner(t *testing.T, searcher JobSearcher, pages ...*apptest.FakePage) (*Runner, *bytes.Buffer) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	config := shared.DefaultConfig()
	config.Engine.ScreenshotDir = filepath.Join(t.TempDir(), "screenshots")
	config.Engine.UploadDir = filepath.Join(t.TempDir(), "uploads")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Logger:   shared.NewLogger(&bytes.Buffer{}),
		Output:   output,
		Searcher: searcher,
		Launcher: &apptest.FakeLauncher{Pages: pages},
		DB:       db,
	})
	return runner, output
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
	})

	t.Run("with nil output uses stdout", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})

	t.Run("with nil launcher builds a chrome launcher", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.launcher == nil {
			t.Error("expected a default launcher")
		}
	})
}

func TestRunnerWriters(t *testing.T) {
	t.Run("writeJSON pretty", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"key": "value"`) {
			t.Errorf("expected formatted JSON, got %s", output.String())
		}
	})

	t.Run("writeJSON compact", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != `{"key":"value"}`+"\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("writeJSON marshal failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runner.writeJSON(make(chan int), false); err == nil {
			t.Fatal("expected error for non-serializable data")
		}
	})

	t.Run("writeJSON write failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &apptest.FWriter{}})
		if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
			t.Fatal("expected error from failing writer")
		}
	})

	t.Run("writeJSON newline write failure", func(t *testing.T) {
		limited := apptest.NewLimitedWriter(1, &bytes.Buffer{})
		runner := NewRunner(RunnerOpts{Output: &limited})
		err := runner.writeJSON(map[string]string{"key": "value"}, false)
		if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
			t.Fatalf("expected newline write error, got %v", err)
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}
	})
}

func TestRegister(t *testing.T) {
	runner := NewRunner(RunnerOpts{})
	commands := runner.register()

	if len(commands) != 5 {
		t.Errorf("expected 5 top-level commands, got %d", len(commands))
	}
	for i, cmd := range commands {
		if cmd == nil {
			t.Errorf("command at index %d is nil", i)
		}
	}
}

func TestProfileCommands(t *testing.T) {
	runner, output := testRunner(t, nil)
	ctx := context.Background()

	profile := models.NewProfile("jane@example.com", "Jane", "Doe")
	profile.JobTitle = "Backend Engineer"
	profile.FreeUsesLeft = 5
	if err := runner.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(output.String(), "jane@example.com") {
		t.Errorf("expected create confirmation, got %q", output.String())
	}

	output.Reset()
	if err := runner.ShowProfile(ctx, "jane@example.com", false); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(output.String(), "Jane Doe") || !strings.Contains(output.String(), "Backend Engineer") {
		t.Errorf("unexpected show output %q", output.String())
	}

	output.Reset()
	if err := runner.TopUpProfile(ctx, "jane@example.com", 3); err != nil {
		t.Fatalf("topup failed: %v", err)
	}
	if !strings.Contains(output.String(), "8 free applications") {
		t.Errorf("expected topped-up total, got %q", output.String())
	}

	if err := runner.TopUpProfile(ctx, "jane@example.com", 0); err == nil {
		t.Error("expected error for non-positive topup")
	}
	if err := runner.ShowProfile(ctx, "nobody@example.com", false); !errors.Is(err, shared.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestApplyRun(t *testing.T) {
	searcher := &stubSearcher{postings: []models.JobPosting{
		{Title: "Engineer A", Company: "Alpha", ApplyURL: "https://boards.greenhouse.io/alpha/1"},
		{Title: "Engineer B", Company: "Beta", ApplyURL: "https://careers.beta.example/2"},
	}}
	runner, output := testRunner(t, searcher, apptest.NewFakePage(), apptest.NewFakePage())
	ctx := context.Background()

	profile := models.NewProfile("jane@example.com", "Jane", "Doe")
	profile.JobTitle = "Backend Engineer"
	profile.FreeUsesLeft = 5
	if err := runner.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	output.Reset()
	if err := runner.ApplyRun(ctx, "jane@example.com", "", "", 5); err != nil {
		t.Fatalf("apply run failed: %v", err)
	}

	got := output.String()
	if !strings.Contains(got, "Engineer A at Alpha – Success") {
		t.Errorf("expected success log line, got %q", got)
	}
	if !strings.Contains(got, "Engineer B at Beta – Skipped (unsupported site)") {
		t.Errorf("expected skip log line, got %q", got)
	}
	if !strings.Contains(got, "Applied: 1  Skipped: 1  Failed: 0") {
		t.Errorf("expected summary, got %q", got)
	}

	// The batch outcome is also durable.
	output.Reset()
	if err := runner.ApplyHistory(ctx, "jane@example.com", false); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(output.String(), "2 attempts for jane@example.com") {
		t.Errorf("expected recorded history, got %q", output.String())
	}
}

func TestApplyRunNoTitle(t *testing.T) {
	runner, _ := testRunner(t, &stubSearcher{})
	ctx := context.Background()

	profile := models.NewProfile("jane@example.com", "Jane", "Doe")
	profile.FreeUsesLeft = 5
	if err := runner.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := runner.ApplyRun(ctx, "jane@example.com", "", "", 5)
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without a job title, got %v", err)
	}
}

func TestSearchJobs(t *testing.T) {
	searcher := &stubSearcher{postings: []models.JobPosting{
		{Title: "Engineer", Company: "Acme", ApplyURL: "https://boards.greenhouse.io/acme/1"},
		{Title: "SRE", Company: "Beta"},
	}}
	runner, output := testRunner(t, searcher)

	if err := runner.SearchJobs(context.Background(), "engineer", "Berlin", 5, false); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	got := output.String()
	if !strings.Contains(got, "Engineer at Acme") {
		t.Errorf("expected posting listing, got %q", got)
	}
	if !strings.Contains(got, "(no apply link)") {
		t.Errorf("expected missing-link marker, got %q", got)
	}
}

func TestSetup(t *testing.T) {
	runner, output := testRunner(t, nil)
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := runner.Setup(context.Background(), path); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
	if _, err := os.Stat(runner.config.Engine.ScreenshotDir); err != nil {
		t.Errorf("expected screenshot dir to be created: %v", err)
	}
	if !strings.Contains(output.String(), "Database ready") {
		t.Errorf("expected setup confirmation, got %q", output.String())
	}

	// Re-running setup leaves the existing config alone.
	output.Reset()
	if err := runner.Setup(context.Background(), path); err != nil {
		t.Fatalf("second setup failed: %v", err)
	}
	if !strings.Contains(output.String(), "leaving it alone") {
		t.Errorf("expected idempotent setup message, got %q", output.String())
	}
}
