package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/tutor/pkg/llm"
)

// ErrMockGeneration is returned by MockGenerator when Fail is set.
var ErrMockGeneration = errors.New("mock generation failure")

// MockGenerator is a scripted llm.Generator. Responses are returned in
// order; the last one repeats once the script runs out.
type MockGenerator struct {
	mu sync.Mutex

	// Responses is the script of model texts.
	Responses []string

	// Respond, when set, computes the response instead of the script.
	Respond func(req *llm.GenerateRequest) (string, error)

	// Fail causes Generate to return ErrMockGeneration.
	Fail bool

	// Delay makes Generate wait, honoring context cancellation.
	Delay time.Duration

	// Requests accumulates every request passed to Generate.
	Requests []*llm.GenerateRequest

	next int
}

// NewMockGenerator creates a generator scripted with responses.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

func (m *MockGenerator) Name() string {
	return "mock"
}

func (m *MockGenerator) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fail, delay, respond := m.Fail, m.Delay, m.Respond
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, ErrMockGeneration
	}

	if respond != nil {
		text, err := respond(req)
		if err != nil {
			return nil, err
		}
		return &llm.GenerateResponse{Text: text, Model: "mock-model", StopReason: "stop"}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	text := ""
	if len(m.Responses) > 0 {
		idx := min(m.next, len(m.Responses)-1)
		text = m.Responses[idx]
		m.next++
	}
	return &llm.GenerateResponse{Text: text, Model: "mock-model", StopReason: "stop"}, nil
}

// Calls returns the number of Generate calls so far.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockGenerator) LastRequest() *llm.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}
