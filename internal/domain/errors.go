package domain

import "errors"

var (
	// ErrValidation marks caller input that failed a validation rule.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing app or integration record.
	ErrNotFound = errors.New("not found")

	// ErrIntegrationNotFound marks an integration type key with no registered provider.
	ErrIntegrationNotFound = errors.New("integration not found")
)
