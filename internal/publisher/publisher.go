// Package publisher notifies downstream consumers of terminal submission
// transitions. Publishing is optional; a nil Publisher disables it.
package publisher

import (
	"context"
	"time"
)

// Event describes one URL reaching a terminal state during a run.
type Event struct {
	RunID    string    `json:"run_id"`
	URL      string    `json:"url"`
	Status   string    `json:"status"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// Publisher delivers events to a named topic and returns a message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) (string, error)
}
