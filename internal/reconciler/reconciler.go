// Package reconciler runs the background loop that re-verifies integrations
// stuck in PENDING and hands the resulting status updates to the durable
// write path, one atomic batch per app.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kursadbilgin/integration-hub/internal/domain"
	"github.com/kursadbilgin/integration-hub/internal/observability"
	"github.com/kursadbilgin/integration-hub/internal/provider"
)

const (
	defaultReconcileInterval = 5 * time.Second
	defaultCheckTimeout      = 10 * time.Second
	minAppConcurrency        = 1
)

// AppSource is the external app store consulted at the start of every pass.
type AppSource interface {
	QueryWithPendingIntegrations(ctx context.Context) ([]domain.App, error)
}

// StatusDispatcher is the external write path. A batch is applied atomically
// per app: the whole update map or none of it.
type StatusDispatcher interface {
	ApplyStatusUpdates(ctx context.Context, batch domain.StatusUpdateBatch) error
}

// PassLease coordinates replicas so only one runs a given pass. A nil lease
// disables coordination.
type PassLease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Reconciler owns a single recurring timer. The next tick is armed only
// after the previous pass fully completes, so passes never overlap. Stop is
// cooperative: no new pass starts, and the in-flight pass winds down as its
// provider calls are cancelled.
type Reconciler struct {
	apps           AppSource
	registry       *provider.Registry
	dispatcher     StatusDispatcher
	lease          PassLease
	logger         *zap.Logger
	metrics        *observability.Metrics
	interval       time.Duration
	checkTimeout   time.Duration
	appConcurrency int
	now            func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewReconciler(
	apps AppSource,
	registry *provider.Registry,
	dispatcher StatusDispatcher,
	lease PassLease,
	interval time.Duration,
	checkTimeout time.Duration,
	appConcurrency int,
	logger *zap.Logger,
) (*Reconciler, error) {
	if apps == nil {
		return nil, fmt.Errorf("app source is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("status dispatcher is required")
	}
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	if appConcurrency < minAppConcurrency {
		appConcurrency = minAppConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		apps:           apps,
		registry:       registry,
		dispatcher:     dispatcher,
		lease:          lease,
		logger:         logger,
		interval:       interval,
		checkTimeout:   checkTimeout,
		appConcurrency: appConcurrency,
		now:            time.Now,
	}, nil
}

func (r *Reconciler) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Start launches the reconciliation loop. An immediate first pass runs so
// integrations stuck since before startup do not wait a full interval.
func (r *Reconciler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reconciler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.run(runCtx)

	r.logger.Info("reconciler started",
		zap.Duration("interval", r.interval),
		zap.Duration("checkTimeout", r.checkTimeout),
		zap.Int("appConcurrency", r.appConcurrency),
	)

	return nil
}

// Stop cancels the loop and waits for the current pass to wind down. Safe to
// call when not running.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	r.runPass(ctx)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.runPass(ctx)
			timer.Reset(r.interval)
		}
	}
}

// runPass executes one reconciliation pass. Every failure mode is contained
// here: the timer must always re-arm no matter what a pass did. The pass id
// rides the context as correlation id, so writes dispatched from this pass
// are traceable in the command logs.
func (r *Reconciler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx = observability.WithCorrelationID(ctx, uuid.NewString())

	outcome := "ok"
	start := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			r.logger.Error("reconciliation pass panicked", zap.Any("panic", rec))
		}
		if r.metrics != nil {
			r.metrics.IncReconcilePass(outcome)
			r.metrics.ObserveReconcilePassDuration(r.now().Sub(start))
		}
	}()

	if r.lease != nil {
		acquired, err := r.lease.Acquire(ctx)
		if err != nil {
			outcome = "lease_error"
			if ctx.Err() == nil {
				r.logger.Error("pass lease acquire failed", zap.Error(err))
			}
			return
		}
		if !acquired {
			outcome = "not_leader"
			r.logger.Debug("pass skipped, lease held by another replica")
			return
		}
		defer func() {
			if err := r.lease.Release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("pass lease release failed", zap.Error(err))
			}
		}()
	}

	apps, err := r.apps.QueryWithPendingIntegrations(ctx)
	if err != nil {
		outcome = "query_error"
		if ctx.Err() == nil {
			r.logger.Error("pending integration query failed", zap.Error(err))
		}
		return
	}

	if r.metrics != nil {
		r.metrics.SetPendingApps(len(apps))
	}
	if len(apps) == 0 {
		outcome = "idle"
		return
	}

	var g errgroup.Group
	g.SetLimit(r.appConcurrency)
	for i := range apps {
		app := apps[i]
		g.Go(func() error {
			r.reconcileApp(ctx, app)
			return nil
		})
	}
	_ = g.Wait()
}

// reconcileApp checks every pending integration of one app, in configuration
// order, and dispatches a single batched update when anything changed. A
// failure here never escapes to the pass.
func (r *Reconciler) reconcileApp(ctx context.Context, app domain.App) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("app reconciliation panicked",
				zap.String("appId", app.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	batch := domain.NewStatusUpdateBatch(app.ID)

	for _, cfg := range app.PendingIntegrations() {
		if ctx.Err() != nil {
			r.logger.Debug("pass interrupted by shutdown", zap.String("appId", app.ID))
			return
		}

		newStatus, checked := r.checkIntegration(ctx, app.ID, cfg)
		if !checked {
			continue
		}
		if newStatus != domain.StatusPending {
			batch.Record(cfg.ID, newStatus)
		}
	}

	if batch.Empty() || ctx.Err() != nil {
		return
	}

	if err := r.dispatcher.ApplyStatusUpdates(ctx, batch); err != nil {
		r.logger.Error("status update dispatch failed",
			zap.String("appId", app.ID),
			zap.Int("updates", len(batch.Updates)),
			zap.Error(err),
		)
		return
	}

	if r.metrics != nil {
		r.metrics.AddStatusUpdates(len(batch.Updates))
	}
	r.logger.Info("integration statuses updated",
		zap.String("appId", app.ID),
		zap.Int("updates", len(batch.Updates)),
	)
}

// checkIntegration resolves one pending integration to its next status.
// A type with no registered provider has nothing left to verify and is
// treated as trivially ready. Check errors and panics are contained; the
// integration is simply retried on a later pass.
func (r *Reconciler) checkIntegration(ctx context.Context, appID string, cfg domain.ConfiguredIntegration) (status domain.IntegrationStatus, checked bool) {
	p, registered := r.registry.Lookup(cfg.Type)
	if !registered {
		r.logger.Info("provider unregistered, integration auto-verified",
			zap.String("appId", appID),
			zap.String("integrationId", cfg.ID),
			zap.String("type", cfg.Type),
		)
		return domain.StatusVerified, true
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("status check panicked",
				zap.String("appId", appID),
				zap.String("integrationId", cfg.ID),
				zap.String("type", cfg.Type),
				zap.Any("panic", rec),
			)
			if r.metrics != nil {
				r.metrics.IncStatusCheck(cfg.Type, "panic")
			}
			status, checked = domain.StatusPending, false
		}
	}()

	checkCtx := ctx
	if r.checkTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, r.checkTimeout)
		defer cancel()
	}

	start := r.now()
	newStatus, err := p.CheckStatus(checkCtx, appID, cfg)
	if r.metrics != nil {
		r.metrics.ObserveStatusCheckDuration(cfg.Type, r.now().Sub(start))
	}

	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("status check failed",
				zap.String("appId", appID),
				zap.String("integrationId", cfg.ID),
				zap.String("type", cfg.Type),
				zap.Bool("transient", provider.IsTransient(err)),
				zap.Error(err),
			)
		}
		if r.metrics != nil {
			r.metrics.IncStatusCheck(cfg.Type, "error")
		}
		return domain.StatusPending, false
	}

	if r.metrics != nil {
		result := "unchanged"
		if newStatus != domain.StatusPending {
			result = strings.ToLower(newStatus.String())
		}
		r.metrics.IncStatusCheck(cfg.Type, result)
	}

	return newStatus, true
}
