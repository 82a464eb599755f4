package domain

import (
	"fmt"
	"strings"
)

// App is a tenant application owning an ordered set of configured
// integrations. Integration ids are unique within an app and insertion
// order is preserved through resolution and persistence.
//
// App is a value type: WithIntegration and WithoutIntegration return
// copies with fresh slices, so a snapshot handed to the resolver or the
// reconciler is never mutated underneath it.
type App struct {
	ID           string
	Name         string
	Integrations []ConfiguredIntegration
}

func (a App) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: app id is required", ErrValidation)
	}
	seen := make(map[string]struct{}, len(a.Integrations))
	for _, ci := range a.Integrations {
		if err := ci.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ci.ID]; dup {
			return fmt.Errorf("%w: duplicate integration id %q", ErrValidation, ci.ID)
		}
		seen[ci.ID] = struct{}{}
	}
	return nil
}

// Integration returns the configured integration with the given id.
func (a App) Integration(id string) (ConfiguredIntegration, bool) {
	for _, ci := range a.Integrations {
		if ci.ID == id {
			return ci, true
		}
	}
	return ConfiguredIntegration{}, false
}

// WithIntegration returns a copy of the app with the integration upserted.
// An existing id keeps its position; a new id is appended.
func (a App) WithIntegration(ci ConfiguredIntegration) App {
	next := a
	next.Integrations = make([]ConfiguredIntegration, 0, len(a.Integrations)+1)

	replaced := false
	for _, existing := range a.Integrations {
		if existing.ID == ci.ID {
			next.Integrations = append(next.Integrations, ci)
			replaced = true
			continue
		}
		next.Integrations = append(next.Integrations, existing)
	}
	if !replaced {
		next.Integrations = append(next.Integrations, ci)
	}
	return next
}

// WithoutIntegration returns a copy of the app with the integration removed.
// Removing an unknown id is a no-op.
func (a App) WithoutIntegration(id string) App {
	next := a
	next.Integrations = make([]ConfiguredIntegration, 0, len(a.Integrations))
	for _, existing := range a.Integrations {
		if existing.ID == id {
			continue
		}
		next.Integrations = append(next.Integrations, existing)
	}
	return next
}

// WithStatuses returns a copy of the app with every integration named in
// updates carrying its new status. Unknown ids are ignored.
func (a App) WithStatuses(updates map[string]IntegrationStatus) App {
	next := a
	next.Integrations = make([]ConfiguredIntegration, len(a.Integrations))
	for i, existing := range a.Integrations {
		if status, ok := updates[existing.ID]; ok {
			next.Integrations[i] = existing.WithStatus(status)
			continue
		}
		next.Integrations[i] = existing
	}
	return next
}

// HasPendingIntegrations reports whether any integration is awaiting
// verification.
func (a App) HasPendingIntegrations() bool {
	for _, ci := range a.Integrations {
		if ci.Status == StatusPending {
			return true
		}
	}
	return false
}

// PendingIntegrations returns the integrations awaiting verification, in
// insertion order.
func (a App) PendingIntegrations() []ConfiguredIntegration {
	var pending []ConfiguredIntegration
	for _, ci := range a.Integrations {
		if ci.Status == StatusPending {
			pending = append(pending, ci)
		}
	}
	return pending
}
