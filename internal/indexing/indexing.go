// Package indexing defines the submission client contract and the error
// classification the scheduler's retry policy is written against.
package indexing

import (
	"context"
	"fmt"
)

// Class buckets submission failures by how the scheduler must react.
type Class int

const (
	// ClassTransient failures (rate limits, server-side errors) are retried
	// up to the configured bound.
	ClassTransient Class = iota
	// ClassPermanent failures (malformed requests) terminate the URL without
	// retrying but do not affect other candidates.
	ClassPermanent
	// ClassFatal failures (authorization) indicate a systemic problem and
	// abort the remaining run.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassFatal:
		return "fatal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// SubmissionError is a classified failure from the indexing provider.
type SubmissionError struct {
	URL        string
	Class      Class
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit %s: %s failure (status %d): %v", e.URL, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("submit %s: %s failure: %v", e.URL, e.Class, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Client submits a single URL to the indexing provider. Implementations
// return nil on acceptance and a *SubmissionError otherwise; batching, if a
// provider supports it, is an optimization invisible to callers.
type Client interface {
	Submit(ctx context.Context, url string) error
}
