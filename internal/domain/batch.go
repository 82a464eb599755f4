package domain

import "fmt"

// StatusUpdateBatch collects the status transitions detected for one app
// during a reconciliation pass. It is built transiently and handed to the
// command dispatch whole: updates apply per app atomically, never per
// individual integration.
type StatusUpdateBatch struct {
	AppID   string
	Updates map[string]IntegrationStatus
}

func NewStatusUpdateBatch(appID string) StatusUpdateBatch {
	return StatusUpdateBatch{
		AppID:   appID,
		Updates: make(map[string]IntegrationStatus),
	}
}

// Record notes that integrationID ended the pass in status.
func (b StatusUpdateBatch) Record(integrationID string, status IntegrationStatus) {
	b.Updates[integrationID] = status
}

// Empty reports whether the pass detected no transitions for the app.
func (b StatusUpdateBatch) Empty() bool {
	return len(b.Updates) == 0
}

func (b StatusUpdateBatch) Validate() error {
	if b.AppID == "" {
		return fmt.Errorf("%w: app id is required", ErrValidation)
	}
	for id, status := range b.Updates {
		if id == "" {
			return fmt.Errorf("%w: integration id must not be blank", ErrValidation)
		}
		if !status.IsValid() {
			return fmt.Errorf("%w: invalid status %q for integration %q", ErrValidation, status, id)
		}
	}
	return nil
}
