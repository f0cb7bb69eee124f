// API service for making raw bearer-authenticated HTTP requests to the FlowMaster API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/flowmaster/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "http://localhost:8000/api"
	requestIDHeader = "X-Request-ID"
)

// APIService provides methods for making raw HTTP requests to the FlowMaster API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAPIService creates a new API service instance.
//
// The client's transport is wrapped so every request carries an X-Request-ID header; the caller's client is not modified.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	wrapped := *client
	wrapped.Transport = &requestIDTransport{base: client.Transport}

	return &APIService{
		baseURL:    baseURL,
		httpClient: &wrapped,
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given burst. A non-positive rps disables limiting.
func (a *APIService) WithRateLimit(rps float64, burst int) *APIService {
	if rps <= 0 {
		a.limiter = nil
		return a
	}
	if burst < 1 {
		burst = 1
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return a
}

// BaseURL returns the API root all paths are resolved against.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// HTTPClient returns the wrapped client used for every request.
func (a *APIService) HTTPClient() *http.Client {
	return a.httpClient
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an [*APIError] for non-2xx responses and nil otherwise.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}
	return newAPIError(r.StatusCode, r.Body)
}

// Decode unmarshals the response body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Wait blocks until the rate limiter admits another request or ctx is done.
func (a *APIService) Wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Do performs a request against path. A non-empty token is sent as a bearer credential; a non-nil body is sent as JSON.
//
// Non-2xx statuses are not errors at this level; see [APIResponse.Err].
func (a *APIService) Do(ctx context.Context, method, path, token string, body any) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	if err := a.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, token, nil)
}

// Post performs a POST request with body encoded as JSON.
func (a *APIService) Post(ctx context.Context, path, token string, body any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, token, body)
}

// Put performs a PUT request with body encoded as JSON.
func (a *APIService) Put(ctx context.Context, path, token string, body any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, token, body)
}

// Delete performs a DELETE request.
func (a *APIService) Delete(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, token, nil)
}

// requestIDTransport stamps each outgoing request with a fresh request ID.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(requestIDHeader) != "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set(requestIDHeader, shared.GenerateID())
	return base.RoundTrip(clone)
}
