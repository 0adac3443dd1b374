package llm

import (
	"context"
	"net/http"
	"sync"
)

// MockResponse is a canned response for the MockClient.
type MockResponse struct {
	Text string
	Err  error
}

// MockClient is a deterministic Client for testing.
// It returns canned responses in FIFO order and records all prompts.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []string
}

// NewMockClient creates a MockClient with the given canned responses.
func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

// Name returns "mock".
func (m *MockClient) Name() string { return "mock" }

// Complete returns the next canned response, or a 503 StatusError if the queue is empty.
func (m *MockClient) Complete(_ context.Context, prompt string) (*Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, prompt)
	if len(m.responses) == 0 {
		return nil, &StatusError{StatusCode: http.StatusServiceUnavailable, Body: "mock: no responses queued"}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &Completion{Text: resp.Text, Model: "mock", Provider: "mock"}, nil
}

// AddResponse appends a canned response to the queue.
func (m *MockClient) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Complete calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return ""
	}
	return m.Calls[len(m.Calls)-1]
}
