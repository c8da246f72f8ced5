// Package google implements the indexing client against the Google Indexing
// API using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	indexingv3 "google.golang.org/api/indexing/v3"
	"google.golang.org/api/option"

	"github.com/searchpress/indexrunner/internal/indexing"
)

// urlUpdated tells Google the page content changed and should be recrawled.
const urlUpdated = "URL_UPDATED"

// Client talks to the Google Indexing API.
type Client struct {
	svc *indexingv3.Service
}

// New builds a Client authenticated with a service-account JSON file.
func New(ctx context.Context, credentialsFile string) (*Client, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("credentials file is required")
	}
	svc, err := indexingv3.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("build indexing service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Submit publishes a URL_UPDATED notification for the given URL.
func (c *Client) Submit(ctx context.Context, url string) error {
	notification := &indexingv3.UrlNotification{
		Url:  url,
		Type: urlUpdated,
	}
	_, err := c.svc.UrlNotifications.Publish(notification).Context(ctx).Do()
	if err != nil {
		return Classify(url, err)
	}
	return nil
}

// Classify maps a Google API failure onto the scheduler's error taxonomy:
// quota exhaustion and server-side errors are retryable, a rejected request
// body is permanent for that URL, and an authorization failure poisons the
// whole run.
func Classify(url string, err error) *indexing.SubmissionError {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		// No HTTP status at all: transport-level failure, worth retrying.
		return &indexing.SubmissionError{URL: url, Class: indexing.ClassTransient, Err: err}
	}

	class := indexing.ClassPermanent
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		class = indexing.ClassTransient
	case apiErr.Code >= 500:
		class = indexing.ClassTransient
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		class = indexing.ClassFatal
	}

	return &indexing.SubmissionError{
		URL:        url,
		Class:      class,
		StatusCode: apiErr.Code,
		Err:        err,
	}
}
