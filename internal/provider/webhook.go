package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/domain"
)

const (
	// TypeWebhook is the type key of the builtin webhook provider.
	TypeWebhook = "webhook"

	defaultWebhookTimeout = 10 * time.Second

	propEndpoint       = "endpoint"
	propSecret         = "secret"
	propTimeoutSeconds = "timeout_seconds"
)

type webhookPayload struct {
	Kind    string            `json:"kind"`
	To      string            `json:"to"`
	Title   string            `json:"title,omitempty"`
	Content string            `json:"content"`
	Data    map[string]string `json:"data,omitempty"`
}

// WebhookProvider delivers chat and push messages by POSTing them to a
// tenant-configured HTTP endpoint. One configuration can serve both
// capabilities.
type WebhookProvider struct {
	client *resty.Client
	logger *zap.Logger
}

func NewWebhookProvider(logger *zap.Logger) (*WebhookProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookProviderWithClient(client, logger)
}

func NewWebhookProviderWithClient(client *resty.Client, logger *zap.Logger) (*WebhookProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{
		client: client,
		logger: logger,
	}, nil
}

func (p *WebhookProvider) Definition() Definition {
	return Definition{
		Type:        TypeWebhook,
		DisplayName: "Generic webhook",
		Capabilities: []domain.Capability{
			domain.CapabilityChatSender,
			domain.CapabilityPushSender,
		},
		Properties: []PropertyDescriptor{
			{Name: propEndpoint, Kind: PropertyURL, Required: true},
			{Name: propSecret, Kind: PropertyText, Secret: true, MinLength: 8},
			{Name: propTimeoutSeconds, Kind: PropertyNumber, Default: "10"},
		},
	}
}

func (p *WebhookProvider) CanCreate(capability domain.Capability, _ domain.ConfiguredIntegration) bool {
	return p.Definition().HasCapability(capability)
}

func (p *WebhookProvider) Create(capability domain.Capability, cfg domain.ConfiguredIntegration, _ *domain.DeliveryTarget) (channel.Instance, error) {
	switch capability {
	case domain.CapabilityChatSender:
		return &webhookChatSender{provider: p, cfg: cfg}, nil
	case domain.CapabilityPushSender:
		return &webhookPushSender{provider: p, cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("webhook provider cannot create capability %q", capability)
	}
}

func (p *WebhookProvider) OnConfigured(_ context.Context, app domain.App, cfg domain.ConfiguredIntegration, _ *domain.ConfiguredIntegration) error {
	p.logger.Debug("webhook integration configured",
		zap.String("appId", app.ID),
		zap.String("integrationId", cfg.ID),
	)
	return nil
}

func (p *WebhookProvider) OnRemoved(_ context.Context, app domain.App, cfg domain.ConfiguredIntegration) error {
	p.logger.Debug("webhook integration removed",
		zap.String("appId", app.ID),
		zap.String("integrationId", cfg.ID),
	)
	return nil
}

// CheckStatus probes the configured endpoint without delivering anything.
// Reachable endpoints verify the configuration, client errors fail it, and
// server or network errors leave it for a later pass.
func (p *WebhookProvider) CheckStatus(ctx context.Context, _ string, cfg domain.ConfiguredIntegration) (domain.IntegrationStatus, error) {
	endpoint := strings.TrimSpace(cfg.Property(propEndpoint))
	if endpoint == "" {
		return domain.StatusFailed, nil
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return domain.StatusFailed, nil
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeaders(webhookHeaders(cfg)).
		Head(endpoint)
	if err != nil {
		return domain.StatusPending, &ProviderError{
			Message:   "webhook probe failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode >= http.StatusOK && statusCode < http.StatusBadRequest:
		return domain.StatusVerified, nil
	case isTransientHTTPStatus(statusCode):
		return domain.StatusPending, &ProviderError{
			StatusCode: statusCode,
			Message:    "webhook probe rejected",
			Transient:  true,
		}
	default:
		return domain.StatusFailed, nil
	}
}

func (p *WebhookProvider) post(ctx context.Context, cfg domain.ConfiguredIntegration, payload webhookPayload) (*channel.Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	endpoint := strings.TrimSpace(cfg.Property(propEndpoint))
	if endpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}

	if timeout := webhookTimeout(cfg); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(webhookHeaders(cfg)).
		SetBody(payload).
		Post(endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "webhook request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "webhook returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &channel.Receipt{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  responseMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    callErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

type webhookChatSender struct {
	provider *WebhookProvider
	cfg      domain.ConfiguredIntegration
}

func (s *webhookChatSender) IntegrationID() string { return s.cfg.ID }

func (s *webhookChatSender) SendChat(ctx context.Context, msg channel.ChatMessage) (*channel.Receipt, error) {
	return s.provider.post(ctx, s.cfg, webhookPayload{
		Kind:    "chat",
		To:      msg.Room,
		Content: msg.Body,
	})
}

type webhookPushSender struct {
	provider *WebhookProvider
	cfg      domain.ConfiguredIntegration
}

func (s *webhookPushSender) IntegrationID() string { return s.cfg.ID }

func (s *webhookPushSender) SendPush(ctx context.Context, msg channel.PushMessage) (*channel.Receipt, error) {
	return s.provider.post(ctx, s.cfg, webhookPayload{
		Kind:    "push",
		To:      msg.DeviceToken,
		Title:   msg.Title,
		Content: msg.Body,
		Data:    msg.Data,
	})
}

func webhookHeaders(cfg domain.ConfiguredIntegration) map[string]string {
	headers := map[string]string{}
	if secret := strings.TrimSpace(cfg.Property(propSecret)); secret != "" {
		headers["X-Webhook-Token"] = secret
	}
	return headers
}

func webhookTimeout(cfg domain.ConfiguredIntegration) time.Duration {
	raw := strings.TrimSpace(cfg.Property(propTimeoutSeconds))
	if raw == "" {
		return 0
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func callErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func responseMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID", "X-Correlation-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
