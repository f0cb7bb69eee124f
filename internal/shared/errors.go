package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrInvalidToken     = fmt.Errorf("invalid token")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")

	// Local state errors
	ErrTaskNotFound = fmt.Errorf("task not found")
	ErrNoCard       = fmt.Errorf("no daily card")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
