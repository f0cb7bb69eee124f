package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/flowmaster/internal/shared"
)

// APIError is returned for any non-2xx response from the API.
type APIError struct {
	StatusCode int
	Detail     string // Human-readable detail from the response body, if any
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// newAPIError builds an [APIError] from a status code and raw response body.
func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Detail: parseDetail(body)}
}

// parseDetail extracts the "detail" field of an error body.
//
// The API sends either a string or a list of validation errors with "msg" fields.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not come from a response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Detail returns the server-supplied detail message carried by err, if any.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
