// Package command owns the durable write path for integration
// configurations: validate, run provider hooks, persist, publish.
package command

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/domain"
	"github.com/kursadbilgin/integration-hub/internal/events"
	"github.com/kursadbilgin/integration-hub/internal/observability"
	"github.com/kursadbilgin/integration-hub/internal/provider"
	"github.com/kursadbilgin/integration-hub/internal/repository"
)

// Dispatcher applies configuration commands against the app store. Every
// write goes through here, including the reconciler's status updates, so
// audit rows and lifecycle events are emitted from one place.
//
// Event publish failures never fail a committed write: the store is the
// source of truth and events are advisory.
type Dispatcher struct {
	apps      repository.AppRepository
	attempts  repository.AttemptRepository
	registry  *provider.Registry
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(
	apps repository.AppRepository,
	attempts repository.AttemptRepository,
	registry *provider.Registry,
	publisher events.Publisher,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if apps == nil {
		return nil, errors.New("app repository is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt repository is required")
	}
	if registry == nil {
		return nil, errors.New("provider registry is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		apps:      apps,
		attempts:  attempts,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ConfigureIntegration creates or replaces one integration configuration.
// The configuration is validated against the provider's property
// descriptors before anything is loaded; a first-time configure for an
// unknown app provisions the app record.
//
// A new integration starts Pending. An existing one is reset to Pending
// when its type or properties change; toggling enabled, test or condition
// keeps the verified state, since none of them affect the external account.
func (d *Dispatcher) ConfigureIntegration(
	ctx context.Context,
	appID string,
	integrationID string,
	cfg domain.ConfiguredIntegration,
) (domain.ConfiguredIntegration, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	appID = strings.TrimSpace(appID)
	if appID == "" {
		return domain.ConfiguredIntegration{}, fmt.Errorf("%w: app id is required", domain.ErrValidation)
	}
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return domain.ConfiguredIntegration{}, fmt.Errorf("%w: integration id is required", domain.ErrValidation)
	}

	cfg.ID = integrationID
	cfg.Type = strings.TrimSpace(cfg.Type)
	if cfg.Type == "" {
		return domain.ConfiguredIntegration{}, fmt.Errorf("%w: integration type is required", domain.ErrValidation)
	}

	if err := d.registry.ValidateConfiguration(cfg); err != nil {
		return domain.ConfiguredIntegration{}, err
	}

	app, err := d.apps.GetByID(ctx, appID)
	if errors.Is(err, domain.ErrNotFound) {
		app = domain.App{ID: appID, Name: appID}
	} else if err != nil {
		return domain.ConfiguredIntegration{}, fmt.Errorf("failed to load app: %w", err)
	}

	previous, existed := app.Integration(integrationID)
	cfg.Status = nextStatus(cfg, previous, existed)
	cfg = cfg.WithProperties(cfg.Properties)
	if err := cfg.Validate(); err != nil {
		return domain.ConfiguredIntegration{}, err
	}

	logger := observability.WithIntegration(observability.WithApp(d.opLogger(ctx), appID), integrationID, cfg.Type)

	p, ok := d.registry.Lookup(cfg.Type)
	if !ok {
		return domain.ConfiguredIntegration{}, fmt.Errorf("%w: %q", domain.ErrIntegrationNotFound, cfg.Type)
	}
	var previousPtr *domain.ConfiguredIntegration
	if existed {
		previousPtr = &previous
	}
	if err := p.OnConfigured(ctx, app, cfg, previousPtr); err != nil {
		return domain.ConfiguredIntegration{}, fmt.Errorf("provider rejected configuration: %w", err)
	}

	if err := d.apps.Save(ctx, app.WithIntegration(cfg)); err != nil {
		return domain.ConfiguredIntegration{}, fmt.Errorf("failed to save app: %w", err)
	}

	if existed && previous.Status != cfg.Status {
		d.recordReset(ctx, logger, appID, integrationID, previous.Status)
	}

	logger.Info("integration configured", zap.String("status", cfg.Status.String()))

	event := events.ConfigEvent{
		EventID:       uuid.NewString(),
		AppID:         appID,
		IntegrationID: integrationID,
		Type:          cfg.Type,
		OccurredAt:    d.now().UTC(),
	}
	if err := d.publisher.PublishConfigured(ctx, event); err != nil {
		logger.Error("failed to publish configured event", zap.Error(err))
	}

	return cfg, nil
}

// RemoveIntegration deletes one integration configuration. The provider's
// OnRemoved hook runs first but cannot veto the removal: a failing hook is
// logged and the configuration is deleted regardless.
func (d *Dispatcher) RemoveIntegration(ctx context.Context, appID, integrationID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	appID = strings.TrimSpace(appID)
	if appID == "" {
		return fmt.Errorf("%w: app id is required", domain.ErrValidation)
	}
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return fmt.Errorf("%w: integration id is required", domain.ErrValidation)
	}

	app, err := d.apps.GetByID(ctx, appID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: app %q", domain.ErrNotFound, appID)
	}
	if err != nil {
		return fmt.Errorf("failed to load app: %w", err)
	}

	cfg, ok := app.Integration(integrationID)
	if !ok {
		return fmt.Errorf("%w: integration %q", domain.ErrNotFound, integrationID)
	}

	logger := observability.WithIntegration(observability.WithApp(d.opLogger(ctx), appID), integrationID, cfg.Type)

	if p, registered := d.registry.Lookup(cfg.Type); registered {
		if err := p.OnRemoved(ctx, app, cfg); err != nil {
			logger.Warn("provider removal hook failed", zap.Error(err))
		}
	}

	if err := d.apps.Save(ctx, app.WithoutIntegration(integrationID)); err != nil {
		return fmt.Errorf("failed to save app: %w", err)
	}

	logger.Info("integration removed")

	event := events.ConfigEvent{
		EventID:       uuid.NewString(),
		AppID:         appID,
		IntegrationID: integrationID,
		Type:          cfg.Type,
		OccurredAt:    d.now().UTC(),
	}
	if err := d.publisher.PublishRemoved(ctx, event); err != nil {
		logger.Error("failed to publish removed event", zap.Error(err))
	}

	return nil
}

// ApplyStatusUpdates commits one reconciliation batch and publishes a
// status change event per recorded transition. The repository applies the
// batch atomically, so either every attempt row exists or none do.
func (d *Dispatcher) ApplyStatusUpdates(ctx context.Context, batch domain.StatusUpdateBatch) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts, err := d.apps.ApplyStatusUpdates(ctx, batch)
	if err != nil {
		return err
	}

	logger := observability.WithApp(d.opLogger(ctx), batch.AppID)
	for _, attempt := range attempts {
		event := events.StatusEventFromAttempt(attempt)
		if err := d.publisher.PublishStatusChanged(ctx, event); err != nil {
			logger.Error("failed to publish status change event",
				zap.String("integrationId", attempt.IntegrationID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// opLogger scopes the logger to the calling operation. Reconciliation passes
// tag their context with a pass id, so out-of-band writes stay traceable.
func (d *Dispatcher) opLogger(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(d.logger, ctx)
}

// nextStatus decides the verification state a configure write lands in.
func nextStatus(cfg, previous domain.ConfiguredIntegration, existed bool) domain.IntegrationStatus {
	if !existed {
		return domain.StatusPending
	}
	if cfg.Type != previous.Type {
		return domain.StatusPending
	}
	if !maps.Equal(cfg.Properties, previous.Properties) {
		return domain.StatusPending
	}
	return previous.Status
}

// recordReset writes the audit row for a tenant-triggered fall back to
// Pending. The configuration save already committed, so a failure here
// only costs the audit trail entry.
func (d *Dispatcher) recordReset(
	ctx context.Context,
	logger *zap.Logger,
	appID string,
	integrationID string,
	from domain.IntegrationStatus,
) {
	attempt := &domain.VerificationAttempt{
		ID:            uuid.NewString(),
		AppID:         appID,
		IntegrationID: integrationID,
		FromStatus:    from,
		ToStatus:      domain.StatusPending,
		CreatedAt:     d.now().UTC(),
	}
	if err := d.attempts.Create(ctx, attempt); err != nil {
		logger.Warn("failed to record status reset attempt", zap.Error(err))
	}
}
