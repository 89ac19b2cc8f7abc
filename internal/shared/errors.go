package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Per-posting outcomes (converted to Skipped/Failed by the executor)
	ErrQuotaExhausted   = fmt.Errorf("out of free applications")
	ErrInvalidLink      = fmt.Errorf("invalid apply link")
	ErrUnsupportedSite  = fmt.Errorf("unsupported application site")
	ErrNavigation       = fmt.Errorf("navigation failed")
	ErrSubmitTimeout    = fmt.Errorf("submit timed out")
	ErrFormFieldMissing = fmt.Errorf("form field missing")

	// Collaborator errors
	ErrProfileNotFound    = fmt.Errorf("profile not found")
	ErrPersistence        = fmt.Errorf("profile store update failed")
	ErrBrowserUnavailable = fmt.Errorf("browser engine unavailable")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
