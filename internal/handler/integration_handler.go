package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kursadbilgin/integration-hub/internal/domain"
	"github.com/kursadbilgin/integration-hub/internal/provider"
	"github.com/kursadbilgin/integration-hub/internal/resolver"
)

const (
	defaultAttemptLimit = 20
	maxAttemptLimit     = 100
)

type CommandService interface {
	ConfigureIntegration(ctx context.Context, appID, integrationID string, cfg domain.ConfiguredIntegration) (domain.ConfiguredIntegration, error)
	RemoveIntegration(ctx context.Context, appID, integrationID string) error
}

type AppStore interface {
	GetByID(ctx context.Context, id string) (domain.App, error)
}

type ResolutionService interface {
	ResolveAll(app domain.App, capability domain.Capability, target *domain.DeliveryTarget) []resolver.Resolved
}

type AttemptStore interface {
	ListByIntegration(ctx context.Context, appID, integrationID string, limit int) ([]domain.VerificationAttempt, error)
}

type IntegrationHandler struct {
	commands CommandService
	apps     AppStore
	resolver ResolutionService
	attempts AttemptStore
}

func NewIntegrationHandler(
	commands CommandService,
	apps AppStore,
	res ResolutionService,
	attempts AttemptStore,
) (*IntegrationHandler, error) {
	if commands == nil {
		return nil, fmt.Errorf("command service is required")
	}
	if apps == nil {
		return nil, fmt.Errorf("app store is required")
	}
	if res == nil {
		return nil, fmt.Errorf("resolution service is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt store is required")
	}
	return &IntegrationHandler{commands: commands, apps: apps, resolver: res, attempts: attempts}, nil
}

func RegisterIntegrationRoutes(
	router fiber.Router,
	commands CommandService,
	apps AppStore,
	res ResolutionService,
	attempts AttemptStore,
) error {
	h, err := NewIntegrationHandler(commands, apps, res, attempts)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Put("/apps/:appId/integrations/:id", h.PutIntegration)
	v1.Delete("/apps/:appId/integrations/:id", h.DeleteIntegration)
	v1.Get("/apps/:appId/integrations", h.ListIntegrations)
	v1.Get("/apps/:appId/integrations/:id/attempts", h.ListAttempts)

	return nil
}

type configureIntegrationRequest struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Enabled    *bool             `json:"enabled"`
	Test       *bool             `json:"test"`
	Condition  *string           `json:"condition"`
}

type integrationResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
	Enabled    bool              `json:"enabled"`
	Test       *bool             `json:"test,omitempty"`
	Condition  *string           `json:"condition,omitempty"`
	Status     string            `json:"status"`
}

type listIntegrationsResponse struct {
	AppID        string                `json:"appId"`
	Integrations []integrationResponse `json:"integrations"`
}

type resolvedIntegrationItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type resolvePreviewResponse struct {
	AppID        string                    `json:"appId"`
	Capability   string                    `json:"capability"`
	Integrations []resolvedIntegrationItem `json:"integrations"`
}

type violationItem struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

type validationErrorResponse struct {
	Error      string          `json:"error"`
	Type       string          `json:"type"`
	Violations []violationItem `json:"violations"`
}

type attemptItem struct {
	ID         string    `json:"id"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	CreatedAt  time.Time `json:"createdAt"`
}

type listAttemptsResponse struct {
	AppID         string        `json:"appId"`
	IntegrationID string        `json:"integrationId"`
	Attempts      []attemptItem `json:"attempts"`
}

func (h *IntegrationHandler) PutIntegration(c *fiber.Ctx) error {
	var req configureIntegrationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cfg := domain.ConfiguredIntegration{
		Type:       strings.TrimSpace(req.Type),
		Properties: req.Properties,
		Enabled:    true,
		Test:       req.Test,
		Condition:  req.Condition,
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}

	saved, err := h.commands.ConfigureIntegration(
		c.Context(),
		strings.TrimSpace(c.Params("appId")),
		strings.TrimSpace(c.Params("id")),
		cfg,
	)
	if err != nil {
		var validationErr *provider.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(toValidationErrorResponse(validationErr))
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toIntegrationResponse(saved))
}

func (h *IntegrationHandler) DeleteIntegration(c *fiber.Ctx) error {
	err := h.commands.RemoveIntegration(
		c.Context(),
		strings.TrimSpace(c.Params("appId")),
		strings.TrimSpace(c.Params("id")),
	)
	if err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListIntegrations returns the app's configurations in order. With a
// capability query parameter it instead previews resolution: the
// integrations a send with that capability (and optional test/properties
// target) would fan out to.
func (h *IntegrationHandler) ListIntegrations(c *fiber.Ctx) error {
	appID := strings.TrimSpace(c.Params("appId"))

	app, err := h.apps.GetByID(c.Context(), appID)
	if err != nil {
		return toHTTPError(err)
	}

	rawCapability := strings.TrimSpace(c.Query("capability"))
	if rawCapability == "" {
		if strings.TrimSpace(c.Query("test")) != "" || strings.TrimSpace(c.Query("properties")) != "" {
			return toHTTPError(fmt.Errorf("%w: capability is required for a resolution preview", domain.ErrValidation))
		}

		items := make([]integrationResponse, 0, len(app.Integrations))
		for _, cfg := range app.Integrations {
			items = append(items, toIntegrationResponse(cfg))
		}
		return c.Status(fiber.StatusOK).JSON(listIntegrationsResponse{
			AppID:        app.ID,
			Integrations: items,
		})
	}

	capability, err := domain.ParseCapabilityFromString(rawCapability)
	if err != nil {
		return toHTTPError(err)
	}

	target, err := parseTargetQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	resolved := h.resolver.ResolveAll(app, capability, target)
	items := make([]resolvedIntegrationItem, 0, len(resolved))
	for _, entry := range resolved {
		item := resolvedIntegrationItem{ID: entry.ID}
		if cfg, ok := app.Integration(entry.ID); ok {
			item.Type = cfg.Type
		}
		items = append(items, item)
	}

	return c.Status(fiber.StatusOK).JSON(resolvePreviewResponse{
		AppID:        app.ID,
		Capability:   capability.String(),
		Integrations: items,
	})
}

func (h *IntegrationHandler) ListAttempts(c *fiber.Ctx) error {
	appID := strings.TrimSpace(c.Params("appId"))
	integrationID := strings.TrimSpace(c.Params("id"))

	limit := c.QueryInt("limit", defaultAttemptLimit)
	if limit < 1 || limit > maxAttemptLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxAttemptLimit))
	}

	app, err := h.apps.GetByID(c.Context(), appID)
	if err != nil {
		return toHTTPError(err)
	}
	if _, ok := app.Integration(integrationID); !ok {
		return toHTTPError(fmt.Errorf("%w: integration %q", domain.ErrNotFound, integrationID))
	}

	attempts, err := h.attempts.ListByIntegration(c.Context(), appID, integrationID, limit)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]attemptItem, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, attemptItem{
			ID:         attempt.ID,
			FromStatus: attempt.FromStatus.String(),
			ToStatus:   attempt.ToStatus.String(),
			CreatedAt:  attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(listAttemptsResponse{
		AppID:         appID,
		IntegrationID: integrationID,
		Attempts:      items,
	})
}

func parseTargetQuery(c *fiber.Ctx) (*domain.DeliveryTarget, error) {
	rawTest := strings.TrimSpace(c.Query("test"))
	rawProperties := strings.TrimSpace(c.Query("properties"))
	if rawTest == "" && rawProperties == "" {
		return nil, nil
	}

	target := &domain.DeliveryTarget{}
	if rawTest != "" {
		test, err := strconv.ParseBool(rawTest)
		if err != nil {
			return nil, fmt.Errorf("%w: test must be a boolean", domain.ErrValidation)
		}
		target.Test = test
	}
	if rawProperties != "" {
		if err := json.Unmarshal([]byte(rawProperties), &target.Properties); err != nil {
			return nil, fmt.Errorf("%w: properties must be a JSON object", domain.ErrValidation)
		}
	}

	return target, nil
}

func toIntegrationResponse(cfg domain.ConfiguredIntegration) integrationResponse {
	return integrationResponse{
		ID:         cfg.ID,
		Type:       cfg.Type,
		Properties: cfg.Properties,
		Enabled:    cfg.Enabled,
		Test:       cfg.Test,
		Condition:  cfg.Condition,
		Status:     cfg.Status.String(),
	}
}

func toValidationErrorResponse(err *provider.ValidationError) validationErrorResponse {
	violations := make([]violationItem, 0, len(err.Violations))
	for _, v := range err.Violations {
		violations = append(violations, violationItem{Property: v.Property, Message: v.Message})
	}
	return validationErrorResponse{
		Error:      err.Error(),
		Type:       err.Type,
		Violations: violations,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrIntegrationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
