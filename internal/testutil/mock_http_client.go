package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/orderrelay/orderrelay/internal/httpclient"
)

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

type mockRoute struct {
	method   string
	urlPart  string
	response MockResponse
}

// MockHTTPClient implements a mock HTTP client for testing. Routes are
// matched in registration order by method and URL substring, and every
// request is recorded so tests can assert on call counts and payloads.
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   []mockRoute
	requests []*httpclient.Request
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// RegisterResponse registers a mock response for a method and URL substring.
// Earlier registrations win, so register more specific routes first.
func (m *MockHTTPClient) RegisterResponse(method, urlPart string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, mockRoute{method: method, urlPart: urlPart, response: resp})
}

// Send implements the httpclient.Client interface. Like the real client it
// returns a typed *httpclient.Error for 4xx/5xx responses.
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	routes := make([]mockRoute, len(m.routes))
	copy(routes, m.routes)
	m.mu.Unlock()

	for _, route := range routes {
		if req.Method == route.method && strings.Contains(req.URL, route.urlPart) {
			if route.response.StatusCode >= 400 {
				return nil, httpclient.NewError(route.response.StatusCode, route.response.Body)
			}
			return &httpclient.Response{
				StatusCode: route.response.StatusCode,
				Body:       route.response.Body,
				Headers:    route.response.Headers,
			}, nil
		}
	}

	return nil, httpclient.NewError(http.StatusNotFound, []byte("no mock registered"))
}

// Requests returns every request seen so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*httpclient.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many requests matched a method and URL substring
func (m *MockHTTPClient) CallCount(method, urlPart string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, req := range m.requests {
		if req.Method == method && strings.Contains(req.URL, urlPart) {
			count++
		}
	}
	return count
}

// LastRequest returns the most recent request matching a method and URL
// substring, or nil when none matched
func (m *MockHTTPClient) LastRequest(method, urlPart string) *httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		req := m.requests[i]
		if req.Method == method && strings.Contains(req.URL, urlPart) {
			return req
		}
	}
	return nil
}

// Clear removes all registered routes and recorded requests
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = nil
	m.requests = nil
}
