// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	mu       sync.Mutex
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.response, m.err
}

// Requests returns every request seen so far.
func (m *MockRoundTripper) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t testing.TB, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MemoryTokens is an in-memory durable token slot.
type MemoryTokens struct {
	mu       sync.Mutex
	token    string
	Saves    int
	Clears   int
	LoadErr  error
	SaveErr  error
	ClearErr error
}

// NewMemoryTokens returns a slot pre-seeded with token.
func NewMemoryTokens(token string) *MemoryTokens {
	return &MemoryTokens{token: token}
}

func (m *MemoryTokens) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	return m.token, nil
}

func (m *MemoryTokens) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	return nil
}

func (m *MemoryTokens) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.token = ""
	return nil
}

// Stored returns the token currently held in the slot.
func (m *MemoryTokens) Stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}
