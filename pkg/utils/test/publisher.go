package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/tutor/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnCompletedEvent

	// Fail causes PublishTurn to return an error.
	Fail bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return errors.New("mock publish failure")
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []*eventstream.TurnCompletedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.TurnCompletedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
