// Package id provides run identifier generation.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a UUIDv7 string used to correlate logs, metrics and
// published events belonging to one run.
func NewRunID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return v.String(), nil
}
