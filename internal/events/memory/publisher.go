// Package memory contains an in-memory completion publisher for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Event captures one published completion event.
type Event struct {
	Topic   string
	Payload any
}

// Publisher records completion events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns the recorded completion events.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
