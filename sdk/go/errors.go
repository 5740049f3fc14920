package whiskers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError.Is.
var (
	// ErrUnauthorized is returned for a missing, invalid or expired session.
	ErrUnauthorized = errors.New("whiskers: unauthorized")

	// ErrForbidden is returned when the session lacks the required role.
	ErrForbidden = errors.New("whiskers: access forbidden")

	// ErrRateLimited is returned when the server throttles the caller.
	ErrRateLimited = errors.New("whiskers: rate limited")
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whiskers: API error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// Is lets errors.Is match the sentinel for the response status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err == nil && apiErr.Code != "" {
		return apiErr
	}

	apiErr.Code = "unknown"
	apiErr.Message = string(body)
	return apiErr
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
