package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/domain"
)

const (
	// TypeSMSGate is the type key of the builtin SMS gateway provider.
	TypeSMSGate = "smsgate"

	defaultSMSGateTimeout = 10 * time.Second
	defaultSMSGateBaseURL = "https://api.smsgate.io"

	propAPIKey   = "api_key"
	propSenderID = "sender_id"
	propBaseURL  = "base_url"
)

// Alphanumeric sender ids are capped at 11 characters by the GSM spec.
var senderIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,11}$`)

type smsGateRequest struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	SenderID string `json:"sender_id,omitempty"`
}

// SMSGateProvider delivers SMS messages through an HTTP SMS gateway and
// verifies configurations by probing the gateway's account endpoint with the
// tenant's API key.
type SMSGateProvider struct {
	client *resty.Client
	logger *zap.Logger
}

func NewSMSGateProvider(logger *zap.Logger) (*SMSGateProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSMSGateTimeout)
	client.SetRetryCount(0)

	return NewSMSGateProviderWithClient(client, logger)
}

func NewSMSGateProviderWithClient(client *resty.Client, logger *zap.Logger) (*SMSGateProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSMSGateTimeout)
	}
	client.SetRetryCount(0)

	return &SMSGateProvider{
		client: client,
		logger: logger,
	}, nil
}

func (p *SMSGateProvider) Definition() Definition {
	return Definition{
		Type:        TypeSMSGate,
		DisplayName: "SMS gateway",
		Capabilities: []domain.Capability{
			domain.CapabilitySMSSender,
		},
		Properties: []PropertyDescriptor{
			{Name: propAPIKey, Kind: PropertyText, Required: true, Secret: true, MinLength: 16},
			{Name: propSenderID, Kind: PropertyText, Pattern: senderIDPattern},
			{Name: propBaseURL, Kind: PropertyURL, Default: defaultSMSGateBaseURL},
		},
	}
}

func (p *SMSGateProvider) CanCreate(capability domain.Capability, _ domain.ConfiguredIntegration) bool {
	return p.Definition().HasCapability(capability)
}

func (p *SMSGateProvider) Create(capability domain.Capability, cfg domain.ConfiguredIntegration, _ *domain.DeliveryTarget) (channel.Instance, error) {
	if capability != domain.CapabilitySMSSender {
		return nil, fmt.Errorf("smsgate provider cannot create capability %q", capability)
	}
	return &smsGateSender{provider: p, cfg: cfg}, nil
}

func (p *SMSGateProvider) OnConfigured(_ context.Context, app domain.App, cfg domain.ConfiguredIntegration, _ *domain.ConfiguredIntegration) error {
	p.logger.Debug("smsgate integration configured",
		zap.String("appId", app.ID),
		zap.String("integrationId", cfg.ID),
	)
	return nil
}

func (p *SMSGateProvider) OnRemoved(_ context.Context, app domain.App, cfg domain.ConfiguredIntegration) error {
	p.logger.Debug("smsgate integration removed",
		zap.String("appId", app.ID),
		zap.String("integrationId", cfg.ID),
	)
	return nil
}

// CheckStatus calls the gateway's account endpoint with the configured key.
// An accepted key verifies the configuration, a rejected key fails it, and
// gateway or network trouble leaves it for a later pass.
func (p *SMSGateProvider) CheckStatus(ctx context.Context, _ string, cfg domain.ConfiguredIntegration) (domain.IntegrationStatus, error) {
	apiKey := strings.TrimSpace(cfg.Property(propAPIKey))
	if apiKey == "" {
		return domain.StatusFailed, nil
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+apiKey).
		Get(p.baseURL(cfg) + "/v1/account")
	if err != nil {
		return domain.StatusPending, &ProviderError{
			Message:   "smsgate account probe failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices:
		return domain.StatusVerified, nil
	case isTransientHTTPStatus(statusCode):
		return domain.StatusPending, &ProviderError{
			StatusCode: statusCode,
			Message:    "smsgate account probe rejected",
			Transient:  true,
		}
	default:
		return domain.StatusFailed, nil
	}
}

func (p *SMSGateProvider) baseURL(cfg domain.ConfiguredIntegration) string {
	base := strings.TrimSpace(cfg.Property(propBaseURL))
	if base == "" {
		base = defaultSMSGateBaseURL
	}
	return strings.TrimRight(base, "/")
}

type smsGateSender struct {
	provider *SMSGateProvider
	cfg      domain.ConfiguredIntegration
}

func (s *smsGateSender) IntegrationID() string { return s.cfg.ID }

func (s *smsGateSender) SendSMS(ctx context.Context, msg channel.SMSMessage) (*channel.Receipt, error) {
	p := s.provider
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	apiKey := strings.TrimSpace(s.cfg.Property(propAPIKey))
	if apiKey == "" {
		return nil, fmt.Errorf("smsgate api key is required")
	}

	reqBody := smsGateRequest{
		To:       msg.To,
		Body:     msg.Body,
		SenderID: strings.TrimSpace(s.cfg.Property(propSenderID)),
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+apiKey).
		SetBody(reqBody).
		Post(p.baseURL(s.cfg) + "/v1/messages")
	if err != nil {
		return nil, &ProviderError{
			Message:   "smsgate request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
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
