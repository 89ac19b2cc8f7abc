package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/engine"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/jobblixor/autoapply/internal/storage"
)

const maxUploadBytes = 32 << 20

// BatchService runs a batch of applications for a profile.
type BatchService interface {
	Run(ctx context.Context, profile *models.Profile, postings []models.JobPosting, progress chan<- engine.ProgressUpdate) (*engine.BatchResult, error)
}

// JobSearcher discovers job postings for a query.
type JobSearcher interface {
	Search(ctx context.Context, query, location string, limit int) ([]models.JobPosting, error)
}

// ProfileService is the profile store surface the submit flow needs.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
}

// SubmitHandler serves POST /submit: it upserts the candidate profile from
// the multipart form, persists uploaded files, discovers matching jobs, and
// runs the auto-apply batch, responding with the ordered outcome log.
type SubmitHandler struct {
	profiles    ProfileService
	searcher    JobSearcher
	batches     BatchService
	uploads     *storage.Uploads
	defaultUses int
	logger      *log.Logger
}

// SubmitHandlerOpts contains the handler's collaborators.
type SubmitHandlerOpts struct {
	Profiles    ProfileService
	Searcher    JobSearcher
	Batches     BatchService
	Uploads     *storage.Uploads
	DefaultUses int // free quota granted to new users, default 5
	Logger      *log.Logger
}

// NewSubmitHandler creates the handler.
func NewSubmitHandler(opts SubmitHandlerOpts) *SubmitHandler {
	if opts.DefaultUses <= 0 {
		opts.DefaultUses = 5
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &SubmitHandler{
		profiles:    opts.Profiles,
		searcher:    opts.Searcher,
		batches:     opts.Batches,
		uploads:     opts.Uploads,
		defaultUses: opts.DefaultUses,
		logger:      opts.Logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SubmitHandler) Routes() []string {
	return []string{"/submit"}
}

type submitResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Log     []string `json:"log,omitempty"`
}

// ServeHTTP handles the submit request.
//
// A batch with zero successful applications is still status "success" with an
// all-skip/fail log; only setup failures (bad input, store or discovery
// errors) produce an error status.
func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respond(w, http.StatusMethodNotAllowed, submitResponse{Status: "error", Message: "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respond(w, http.StatusBadRequest, submitResponse{Status: "error", Message: "invalid form data"})
		return
	}

	email := r.FormValue("email")
	if email == "" {
		h.respond(w, http.StatusBadRequest, submitResponse{Status: "error", Message: "missing email"})
		return
	}

	numJobs := 5
	if v := r.FormValue("num_jobs"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			numJobs = n
		}
	}

	ctx := r.Context()
	profile, err := h.upsertProfile(ctx, r, email)
	if err != nil {
		h.logger.Error("profile upsert failed", "email", email, "error", err)
		h.respond(w, http.StatusInternalServerError, submitResponse{Status: "error", Message: "failed to save profile"})
		return
	}

	postings, err := h.searcher.Search(ctx, profile.JobTitle, profile.Location, numJobs)
	if err != nil {
		h.logger.Error("job search failed", "email", email, "error", err)
		h.respond(w, http.StatusBadGateway, submitResponse{Status: "error", Message: "job search failed"})
		return
	}

	result, err := h.batches.Run(ctx, profile, postings, nil)
	if err != nil {
		h.logger.Error("batch run failed", "email", email, "error", err)
		h.respond(w, http.StatusInternalServerError, submitResponse{Status: "error", Message: "application batch failed"})
		return
	}

	batchLog := result.Log
	if batchLog == nil {
		batchLog = []string{}
	}
	h.respond(w, http.StatusOK, submitResponse{Status: "success", Log: batchLog})
}

// upsertProfile builds the profile from form fields and files, preserving the
// counters and plan fields of existing users and defaulting new ones.
func (h *SubmitHandler) upsertProfile(ctx context.Context, r *http.Request, email string) (*models.Profile, error) {
	existing, err := h.profiles.GetProfile(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
		return nil, err
	}

	profile := existing
	if profile == nil {
		profile = models.NewProfile(email, r.FormValue("first_name"), r.FormValue("last_name"))
		profile.FreeUsesLeft = h.defaultUses
	}

	if v := r.FormValue("first_name"); v != "" {
		profile.FirstName = v
	}
	if v := r.FormValue("last_name"); v != "" {
		profile.LastName = v
	}
	if v := r.FormValue("phone_number"); v != "" {
		profile.Phone = v
	}
	if v := r.FormValue("job_title"); v != "" {
		profile.JobTitle = v
	}
	if v := r.FormValue("location"); v != "" {
		profile.Location = v
	}
	if v := r.FormValue("preferred_salary"); v != "" {
		profile.Salary = v
	}

	if path, err := h.saveUpload(r, "resume"); err == nil && path != "" {
		profile.ResumeRef = path
	}
	if path, err := h.saveUpload(r, "profilePhoto"); err == nil && path != "" {
		profile.PhotoRef = path
	}

	if existing == nil {
		err = h.profiles.Create(ctx, profile)
	} else {
		err = h.profiles.Update(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func (h *SubmitHandler) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil // field absent, not an error
	}
	defer file.Close()
	return h.uploads.Save(header.Filename, file)
}

func (h *SubmitHandler) respond(w http.ResponseWriter, status int, body submitResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
