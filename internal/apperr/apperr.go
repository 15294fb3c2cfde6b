// internal/apperr/apperr.go
//
// Error taxonomy shared by the leaderboard and HubSpot packages.
//
// Context
// -------
// Operations return wrapped sentinels so handlers can classify a failure
// with errors.Is and pick a status code without string matching.  Two
// structured types carry extra detail:
//
//   - ValidationError  - field-level messages; unwraps to ErrInvalidInput.
//   - ProviderError    - OAuth error reported by HubSpot on the callback;
//     unwraps to ErrProviderReported.
//
// Infrastructure sentinels (ErrStoreUnavailable, ErrProviderUnavailable)
// are logged with full detail at the operation boundary.  Only Public()
// text crosses the trust boundary.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// user-fixable input
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// infrastructure
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrConfiguration       = errors.New("configuration error")

	// OAuth flow
	ErrProviderReported    = errors.New("provider reported error")
	ErrMissingCode         = errors.New("missing authorization code")
	ErrInvalidState        = errors.New("invalid oauth state")
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrNotConnected        = errors.New("portal not connected")
)

// Field is one field-level validation message.
type Field struct {
	Name    string `json:"field"`
	Message string `json:"message"`
}

// ValidationError groups field messages under a single user-facing summary.
type ValidationError struct {
	Summary string
	Fields  []Field
}

func (e *ValidationError) Error() string {
	if e.Summary != "" {
		return e.Summary
	}
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Name+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid builds a ValidationError with a summary and no fields.
func Invalid(summary string) error { return &ValidationError{Summary: summary} }

// ProviderError is the error/error_description pair HubSpot appends to the
// callback URL when the user denies access or the app is misconfigured.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return "provider error: " + e.Code + ": " + e.Description
	}
	return "provider error: " + e.Code
}

func (e *ProviderError) Unwrap() error { return ErrProviderReported }

// Message returns the text shown to the user, preferring the description.
func (e *ProviderError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// Status maps an error onto an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotConnected):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public returns a message that is safe to show to API callers.  Validation
// errors keep their text; everything else collapses to a generic phrase.
func Public(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrNotConnected):
		return "Portal not connected"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	default:
		return "Internal server error"
	}
}
