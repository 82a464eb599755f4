// Package resolver matches an app's configured integrations against a
// requested capability and an optional delivery target, producing
// ready-to-use channel instances in configuration order.
package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/condition"
	"github.com/kursadbilgin/integration-hub/internal/domain"
	"github.com/kursadbilgin/integration-hub/internal/provider"
)

// Resolved pairs an integration id with the channel instance it produced.
type Resolved struct {
	ID       string
	Instance channel.Instance
}

// Resolver is pure over its inputs: it never mutates the app snapshot, never
// changes integration status, and performs no I/O. Calls are safe for
// unlimited concurrency.
type Resolver struct {
	registry   *provider.Registry
	conditions *condition.Evaluator
	logger     *zap.Logger
}

func NewResolver(registry *provider.Registry, conditions *condition.Evaluator, logger *zap.Logger) (*Resolver, error) {
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if conditions == nil {
		return nil, fmt.Errorf("condition evaluator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		registry:   registry,
		conditions: conditions,
		logger:     logger,
	}, nil
}

// survives runs the filtering pipeline for one integration: readiness,
// target gate when a target is supplied, then provider existence. A type
// whose provider was uninstalled is skipped, never an error.
func (r *Resolver) survives(cfg domain.ConfiguredIntegration, target *domain.DeliveryTarget) (provider.Provider, bool) {
	if !cfg.Enabled || cfg.Status != domain.StatusVerified {
		return nil, false
	}

	if target != nil {
		if !cfg.MatchesTest(target.Test) {
			return nil, false
		}
		if !r.conditions.Evaluate(cfg.Condition, *target) {
			return nil, false
		}
	}

	p, ok := r.registry.Lookup(cfg.Type)
	if !ok {
		return nil, false
	}

	return p, true
}

// IsConfigured reports whether any integration surviving the pipeline can
// instantiate the capability.
func (r *Resolver) IsConfigured(app domain.App, capability domain.Capability, target *domain.DeliveryTarget) bool {
	for _, cfg := range app.Integrations {
		p, ok := r.survives(cfg, target)
		if !ok {
			continue
		}
		if p.CanCreate(capability, cfg) {
			return true
		}
	}

	return false
}

// Resolve returns the first surviving integration with the given id that can
// instantiate the capability. Ids are unique within an app, so the insertion
// order tie-break is informational.
func (r *Resolver) Resolve(app domain.App, capability domain.Capability, id string, target *domain.DeliveryTarget) (channel.Instance, bool) {
	for _, cfg := range app.Integrations {
		if cfg.ID != id {
			continue
		}

		instance, ok := r.instantiate(cfg, capability, target)
		if !ok {
			continue
		}
		return instance, true
	}

	return nil, false
}

// ResolveAll returns every surviving integration capable of the capability,
// in configuration order. The result is recomputed on each call and is
// deterministic for an unchanged app snapshot.
func (r *Resolver) ResolveAll(app domain.App, capability domain.Capability, target *domain.DeliveryTarget) []Resolved {
	var resolved []Resolved
	for _, cfg := range app.Integrations {
		instance, ok := r.instantiate(cfg, capability, target)
		if !ok {
			continue
		}
		resolved = append(resolved, Resolved{ID: cfg.ID, Instance: instance})
	}

	return resolved
}

func (r *Resolver) instantiate(cfg domain.ConfiguredIntegration, capability domain.Capability, target *domain.DeliveryTarget) (channel.Instance, bool) {
	p, ok := r.survives(cfg, target)
	if !ok {
		return nil, false
	}
	if !p.CanCreate(capability, cfg) {
		return nil, false
	}

	instance, err := p.Create(capability, cfg, target)
	if err != nil {
		r.logger.Warn("integration instantiation failed",
			zap.String("integrationId", cfg.ID),
			zap.String("type", cfg.Type),
			zap.String("capability", capability.String()),
			zap.Error(err),
		)
		return nil, false
	}
	if instance == nil {
		return nil, false
	}

	return instance, true
}
