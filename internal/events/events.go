// Package events emits integration lifecycle events for external audit
// consumers.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// Kind discriminates the integration lifecycle events.
type Kind string

const (
	KindConfigured    Kind = "configured"
	KindRemoved       Kind = "removed"
	KindStatusChanged Kind = "status_changed"
)

// ConfigEvent reports a configuration write: an integration was configured
// or removed.
type ConfigEvent struct {
	EventID       string    `json:"eventId"`
	AppID         string    `json:"appId"`
	IntegrationID string    `json:"integrationId"`
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func (e ConfigEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if strings.TrimSpace(e.AppID) == "" {
		return fmt.Errorf("appId is required")
	}
	if strings.TrimSpace(e.IntegrationID) == "" {
		return fmt.Errorf("integrationId is required")
	}
	return nil
}

// StatusEvent reports one status transition applied to an integration.
type StatusEvent struct {
	EventID       string                   `json:"eventId"`
	AppID         string                   `json:"appId"`
	IntegrationID string                   `json:"integrationId"`
	From          domain.IntegrationStatus `json:"from"`
	To            domain.IntegrationStatus `json:"to"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

func (e StatusEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if strings.TrimSpace(e.AppID) == "" {
		return fmt.Errorf("appId is required")
	}
	if strings.TrimSpace(e.IntegrationID) == "" {
		return fmt.Errorf("integrationId is required")
	}
	if !e.From.IsValid() {
		return fmt.Errorf("invalid from status %q", e.From)
	}
	if !e.To.IsValid() {
		return fmt.Errorf("invalid to status %q", e.To)
	}
	return nil
}

// StatusEventFromAttempt builds the event for one recorded transition. The
// attempt id doubles as the event id so consumers can deduplicate.
func StatusEventFromAttempt(attempt domain.VerificationAttempt) StatusEvent {
	return StatusEvent{
		EventID:       attempt.ID,
		AppID:         attempt.AppID,
		IntegrationID: attempt.IntegrationID,
		From:          attempt.FromStatus,
		To:            attempt.ToStatus,
		OccurredAt:    attempt.CreatedAt,
	}
}

// Publisher publishes integration lifecycle events.
type Publisher interface {
	PublishConfigured(ctx context.Context, event ConfigEvent) error
	PublishRemoved(ctx context.Context, event ConfigEvent) error
	PublishStatusChanged(ctx context.Context, event StatusEvent) error
	Close() error
}

// RoutingKey returns the topic routing key for an event, e.g.
// integration.status_changed.app-1.
func RoutingKey(kind Kind, appID string) string {
	return fmt.Sprintf("integration.%s.%s", kind, appID)
}
