package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jobblixor/autoapply/internal/engine"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/storage"
	apptest "github.com/jobblixor/autoapply/internal/testing"
)

type fakeSearcher struct {
	postings []models.JobPosting
	err      error

	query    string
	location string
	limit    int
}

func (s *fakeSearcher) Search(ctx context.Context, query, location string, limit int) ([]models.JobPosting, error) {
	s.query, s.location, s.limit = query, location, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.postings, nil
}

type fakeBatches struct {
	result  *engine.BatchResult
	err     error
	profile *models.Profile
}

func (b *fakeBatches) Run(ctx context.Context, profile *models.Profile, postings []models.JobPosting, progress chan<- engine.ProgressUpdate) (*engine.BatchResult, error) {
	b.profile = profile
	if b.err != nil {
		return nil, b.err
	}
	return b.result, nil
}

type submitFixture struct {
	profiles *apptest.MemoryProfiles
	searcher *fakeSearcher
	batches  *fakeBatches
	handler  *SubmitHandler
}

func newSubmitFixture(t *testing.T) *submitFixture {
	t.Helper()
	uploads, err := storage.NewUploads(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	profiles := apptest.NewMemoryProfiles()
	searcher := &fakeSearcher{
		postings: []models.JobPosting{
			{Title: "Engineer", Company: "Acme", ApplyURL: "https://boards.greenhouse.io/acme/1"},
		},
	}
	batches := &fakeBatches{
		result: &engine.BatchResult{
			Log:          []string{"Engineer at Acme – Success (screenshot taken)"},
			SuccessCount: 1,
		},
	}

	handler := NewSubmitHandler(SubmitHandlerOpts{
		Profiles:    profiles,
		Searcher:    searcher,
		Batches:     batches,
		Uploads:     uploads,
		DefaultUses: 5,
	})

	return &submitFixture{profiles: profiles, searcher: searcher, batches: batches, handler: handler}
}

type formFile struct {
	field    string
	name     string
	contents string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.WriteString(part, f.contents); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/submit", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func submitFields() map[string]string {
	return map[string]string{
		"email":            "jane@example.com",
		"first_name":       "Jane",
		"last_name":        "Doe",
		"phone_number":     "555-0100",
		"job_title":        "Backend Engineer",
		"location":         "Berlin",
		"preferred_salary": "90000",
		"num_jobs":         "3",
	}
}

func TestSubmitHandler(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		f := newSubmitFixture(t)
		req := multipartRequest(t, submitFields(),
			formFile{field: "resume", name: "resume.pdf", contents: "pdf bytes"})
		rec := httptest.NewRecorder()

		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		payload := decodeResponse(t, rec)
		if payload["status"] != "success" {
			t.Errorf("expected success status, got %v", payload["status"])
		}
		log, ok := payload["log"].([]any)
		if !ok || len(log) != 1 {
			t.Fatalf("expected 1 log line, got %v", payload["log"])
		}
		if log[0] != "Engineer at Acme – Success (screenshot taken)" {
			t.Errorf("unexpected log line %v", log[0])
		}

		// The new profile gets the default quota and the search uses its
		// title and location.
		profile := f.profiles.Profiles["jane@example.com"]
		if profile == nil {
			t.Fatal("expected the profile to be created")
		}
		if profile.FreeUsesLeft != 5 {
			t.Errorf("expected default quota 5, got %d", profile.FreeUsesLeft)
		}
		if profile.ResumeRef == "" {
			t.Error("expected the resume upload to be referenced")
		}
		if data, err := os.ReadFile(profile.ResumeRef); err != nil || string(data) != "pdf bytes" {
			t.Errorf("resume not persisted: %v", err)
		}
		if f.searcher.query != "Backend Engineer" || f.searcher.location != "Berlin" || f.searcher.limit != 3 {
			t.Errorf("unexpected search %q/%q/%d", f.searcher.query, f.searcher.location, f.searcher.limit)
		}
	})

	t.Run("existing profile keeps its counters", func(t *testing.T) {
		f := newSubmitFixture(t)
		existing := models.NewProfile("jane@example.com", "Jane", "Doe")
		existing.FreeUsesLeft = 2
		existing.ApplicationCount = 3
		f.profiles.Profiles["jane@example.com"] = existing

		req := multipartRequest(t, submitFields())
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		profile := f.profiles.Profiles["jane@example.com"]
		if profile.FreeUsesLeft != 2 || profile.ApplicationCount != 3 {
			t.Errorf("existing counters must survive resubmission, got %d/%d",
				profile.FreeUsesLeft, profile.ApplicationCount)
		}
		if profile.JobTitle != "Backend Engineer" {
			t.Errorf("form fields should update the profile, got %q", profile.JobTitle)
		}
	})

	t.Run("missing email", func(t *testing.T) {
		f := newSubmitFixture(t)
		fields := submitFields()
		delete(fields, "email")

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, multipartRequest(t, fields))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		f := newSubmitFixture(t)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("search failure is a bad gateway", func(t *testing.T) {
		f := newSubmitFixture(t)
		f.searcher.err = errors.New("serpapi down")

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, multipartRequest(t, submitFields()))

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("batch failure is an internal error", func(t *testing.T) {
		f := newSubmitFixture(t)
		f.batches.err = errors.New("browser unavailable")

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, multipartRequest(t, submitFields()))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("all-skip batch is still a success response", func(t *testing.T) {
		f := newSubmitFixture(t)
		f.batches.result = &engine.BatchResult{
			Log:          []string{"Engineer at Acme – Skipped (quota exhausted)"},
			SkippedCount: 1,
		}

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, multipartRequest(t, submitFields()))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if payload := decodeResponse(t, rec); payload["status"] != "success" {
			t.Errorf("zero applications is still a completed batch, got %v", payload["status"])
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/thing", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thing", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for wrong method, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/thing", nil))
		if rec.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/thing", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/thing", nil))
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("handler routes registered", func(t *testing.T) {
		f := newSubmitFixture(t)
		router := NewBasicRouter()
		router.Handler(f.handler)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, submitFields()))
		if rec.Code != http.StatusOK {
			t.Errorf("expected the submit route to be wired, got %d", rec.Code)
		}
	})
}
