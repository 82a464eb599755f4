// Package provider defines the integration provider contract, the registry
// of installed providers, and the builtin provider implementations.
package provider

import (
	"context"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// Provider is the plugin contract every integration type implements.
//
// Create and CanCreate are called from the resolution path and must be pure:
// no I/O, no mutation of the configuration. CheckStatus is the only
// potentially slow operation; callers bound it with a context deadline.
type Provider interface {
	// Definition returns the static descriptor: type key, property
	// descriptors, supported capabilities.
	Definition() Definition

	// CanCreate reports whether this provider can instantiate the given
	// capability for the given configuration.
	CanCreate(capability domain.Capability, cfg domain.ConfiguredIntegration) bool

	// Create builds a channel instance for the capability. The target is the
	// delivery context of the resolution call and may be nil.
	Create(capability domain.Capability, cfg domain.ConfiguredIntegration, target *domain.DeliveryTarget) (channel.Instance, error)

	// OnConfigured runs before a created or updated configuration is
	// persisted; an error aborts the write. previous is nil on first
	// configuration.
	OnConfigured(ctx context.Context, app domain.App, cfg domain.ConfiguredIntegration, previous *domain.ConfiguredIntegration) error

	// OnRemoved runs before a configuration is removed. Errors do not stop
	// the removal.
	OnRemoved(ctx context.Context, app domain.App, cfg domain.ConfiguredIntegration) error

	// CheckStatus verifies the configuration against the external provider
	// and returns the status it settled on. Returning the current status
	// unchanged means verification is still inconclusive.
	CheckStatus(ctx context.Context, appID string, cfg domain.ConfiguredIntegration) (domain.IntegrationStatus, error)
}
