package provider

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// Registry holds the installed providers keyed by integration type. Lookups
// are safe for concurrent use with registration.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register installs a provider under its definition's type key. Registering
// a type that is already present replaces the earlier provider.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("%w: provider is required", domain.ErrValidation)
	}

	def := p.Definition()
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[def.Type]; exists {
		r.logger.Warn("provider replaced", zap.String("type", def.Type))
	}
	r.providers[def.Type] = p

	capabilities := make([]string, 0, len(def.Capabilities))
	for _, capability := range def.Capabilities {
		capabilities = append(capabilities, capability.String())
	}
	r.logger.Info("provider registered",
		zap.String("type", def.Type),
		zap.Strings("capabilities", capabilities),
	)

	return nil
}

// Unregister removes the provider for the given type. Configurations of that
// type are skipped at resolution and auto-verified by reconciliation.
func (r *Registry) Unregister(integrationType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[integrationType]; !exists {
		return
	}

	delete(r.providers, integrationType)
	r.logger.Info("provider unregistered", zap.String("type", integrationType))
}

// Lookup returns the provider registered for the given type.
func (r *Registry) Lookup(integrationType string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[integrationType]
	return p, ok
}

// Types returns the registered type keys in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	slices.Sort(types)

	return types
}

// ValidateConfiguration checks a configured integration against its
// provider's property descriptors.
//
// An unknown type fails immediately with domain.ErrIntegrationNotFound and no
// property checks run. Otherwise every descriptor is validated, absent values
// falling back to the descriptor default, and all violations are reported
// together in one ValidationError.
func (r *Registry) ValidateConfiguration(cfg domain.ConfiguredIntegration) error {
	p, ok := r.Lookup(cfg.Type)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrIntegrationNotFound, cfg.Type)
	}

	def := p.Definition()

	var violations []Violation
	for _, desc := range def.Properties {
		value, present := cfg.Properties[desc.Name]
		if !present {
			value = desc.Default
		}
		for _, msg := range desc.Validate(value) {
			violations = append(violations, Violation{Property: desc.Name, Message: msg})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Type: cfg.Type, Violations: violations}
	}

	return nil
}
