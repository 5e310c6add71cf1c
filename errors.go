package deta

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, deta.ErrNotFound) to check.
var (
	ErrBadRequest      = errors.New("deta: bad request")
	ErrUnauthorized    = errors.New("deta: unauthorized")
	ErrNotFound        = errors.New("deta: not found")
	ErrConflict        = errors.New("deta: key conflict")
	ErrPayloadTooLarge = errors.New("deta: payload too large")
	ErrThrottled       = errors.New("deta: throttled")
	ErrServerError     = errors.New("deta: server error")
)

// APIError wraps a sentinel error with the HTTP status code, the
// vendor's structured error detail, and the raw response body.
type APIError struct {
	StatusCode int
	Detail     []string // parsed from the {"errors": [...]} response body, if present
	Body       string   // raw response body, for debugging
	Err        error    // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if len(e.Detail) > 0 {
		return fmt.Sprintf("deta: HTTP %d: %v", e.StatusCode, e.Detail)
	}

	return fmt.Sprintf("deta: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorResponse mirrors the JSON body Deta returns for 4xx responses.
type errorResponse struct {
	Errors []string `json:"errors"`
}

// newAPIError builds an APIError from a non-2xx response body, parsing
// the vendor's error detail on a best-effort basis.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
		Err:        classifyStatus(statusCode),
	}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		apiErr.Detail = er.Errors
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
