// Package discovery implements the job search collaborator: a thin SerpAPI
// google_jobs client. The engine treats empty or partial results as valid
// input, never an error.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/jobblixor/autoapply/internal/models"
	"github.com/jobblixor/autoapply/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://serpapi.com/search"

// Client queries SerpAPI for job postings. Requests are rate limited to stay
// inside the free-tier allowance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts configures a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// NewClient creates a SerpAPI client with the given API key.
func NewClient(apiKey string, opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(1), 1)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     apiKey,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// searchResponse mirrors the slice of the google_jobs payload we read.
type searchResponse struct {
	JobsResults []struct {
		Title        string `json:"title"`
		CompanyName  string `json:"company_name"`
		ApplyOptions []struct {
			Link string `json:"link"`
		} `json:"apply_options"`
	} `json:"jobs_results"`
}

// Search queries google_jobs for "<query> in <location>" and returns up to
// limit postings.
//
// Postings without an apply link come back with an empty ApplyURL; the engine
// skips them later as invalid links rather than dropping them here, so the
// batch log still accounts for every discovered job.
func (c *Client) Search(ctx context.Context, query, location string, limit int) ([]models.JobPosting, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: SerpAPI key not configured", shared.ErrMissingCredentials)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	q := query
	if location != "" {
		q = fmt.Sprintf("%s in %s", query, location)
	}

	params := url.Values{}
	params.Set("engine", "google_jobs")
	params.Set("q", q)
	params.Set("api_key", c.apiKey)
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	postings := make([]models.JobPosting, 0, limit)
	for _, job := range payload.JobsResults {
		if limit > 0 && len(postings) >= limit {
			break
		}
		link := ""
		if len(job.ApplyOptions) > 0 {
			link = job.ApplyOptions[0].Link
		}
		postings = append(postings, models.JobPosting{
			Title:    job.Title,
			Company:  job.CompanyName,
			ApplyURL: link,
		})
	}

	c.logger.Debug("job search complete", "query", q, "results", len(postings))
	return postings, nil
}
