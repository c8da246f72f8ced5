// Package memory implements an in-process publisher, mainly for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/searchpress/indexrunner/internal/publisher"
)

// Publisher records published events in memory.
type Publisher struct {
	mu     sync.Mutex
	events []publisher.Event
}

// New creates an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish stores the event and returns a sequential message ID.
func (p *Publisher) Publish(_ context.Context, _ string, event publisher.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return fmt.Sprintf("mem-%d", len(p.events)), nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []publisher.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publisher.Event, len(p.events))
	copy(out, p.events)
	return out
}
