package domain

import "time"

// VerificationAttempt records a single status transition applied to a
// configured integration: a reconciliation pass moving it away from
// PENDING, or a reconfiguration resetting it back.
type VerificationAttempt struct {
	ID            string
	AppID         string
	IntegrationID string
	FromStatus    IntegrationStatus
	ToStatus      IntegrationStatus
	CreatedAt     time.Time
}
