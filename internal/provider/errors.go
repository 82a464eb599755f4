package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// ProviderError classifies provider call failures as transient/permanent.
// Both delivery calls and status checks produce it.
type ProviderError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a provider call is worth repeating on a later
// pass. Context cancellation is permanent, deadline expiry is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}

	return false
}

// Violation is one field-scoped configuration problem.
type Violation struct {
	Property string
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Property, v.Message)
}

// ValidationError aggregates every property violation found while validating
// a configuration against its provider definition.
type ValidationError struct {
	Type       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}

	return fmt.Sprintf("invalid configuration for type %q: %s", e.Type, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}
