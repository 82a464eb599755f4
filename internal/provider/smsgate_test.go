package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/domain"
)

func smsGateConfig(baseURL string) domain.ConfiguredIntegration {
	return domain.ConfiguredIntegration{
		ID:      "sms-primary",
		Type:    TypeSMSGate,
		Status:  domain.StatusVerified,
		Enabled: true,
		Properties: map[string]string{
			"api_key":   strings.Repeat("k", 24),
			"sender_id": "ACME",
			"base_url":  baseURL,
		},
	}
}

func TestSMSGateSendSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotAuth string
	var gotBody smsGateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Request-ID", "sms-msg-7")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p, err := NewSMSGateProvider(nil)
	if err != nil {
		t.Fatalf("NewSMSGateProvider() error = %v", err)
	}

	instance, err := p.Create(domain.CapabilitySMSSender, smsGateConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sender := instance.(channel.SMSSender)

	receipt, err := sender.SendSMS(context.Background(), channel.SMSMessage{
		To:   "+905551112233",
		Body: "your code is 123456",
	})
	if err != nil {
		t.Fatalf("SendSMS() unexpected error: %v", err)
	}

	if gotPath != "/v1/messages" {
		t.Fatalf("path = %q, want /v1/messages", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody.To != "+905551112233" {
		t.Fatalf("request.to = %q, want +905551112233", gotBody.To)
	}
	if gotBody.SenderID != "ACME" {
		t.Fatalf("request.sender_id = %q, want ACME", gotBody.SenderID)
	}
	if receipt.MessageID != "sms-msg-7" {
		t.Fatalf("MessageID = %q, want sms-msg-7", receipt.MessageID)
	}
}

func TestSMSGateCreateRejectsForeignCapability(t *testing.T) {
	t.Parallel()

	p, err := NewSMSGateProvider(nil)
	if err != nil {
		t.Fatalf("NewSMSGateProvider() error = %v", err)
	}

	if _, err := p.Create(domain.CapabilityEmailSender, smsGateConfig("https://api.smsgate.io"), nil); err == nil {
		t.Fatal("Create(EMAIL_SENDER) expected error")
	}
	if p.CanCreate(domain.CapabilityEmailSender, smsGateConfig("https://api.smsgate.io")) {
		t.Fatal("CanCreate(EMAIL_SENDER) = true, want false")
	}
}

func TestSMSGateCheckStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		statusCode int
		wantStatus domain.IntegrationStatus
	}{
		{name: "accepted key verifies", statusCode: http.StatusOK, wantStatus: domain.StatusVerified},
		{name: "rejected key fails", statusCode: http.StatusUnauthorized, wantStatus: domain.StatusFailed},
		{name: "gateway outage stays pending", statusCode: http.StatusServiceUnavailable, wantStatus: domain.StatusPending},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/account" {
					t.Errorf("path = %q, want /v1/account", r.URL.Path)
				}
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			p, err := NewSMSGateProvider(nil)
			if err != nil {
				t.Fatalf("NewSMSGateProvider() error = %v", err)
			}

			status, _ := p.CheckStatus(context.Background(), "app-1", smsGateConfig(server.URL))
			if status != tc.wantStatus {
				t.Fatalf("CheckStatus() = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestSMSGateCheckStatusMissingKeyFails(t *testing.T) {
	t.Parallel()

	p, err := NewSMSGateProvider(nil)
	if err != nil {
		t.Fatalf("NewSMSGateProvider() error = %v", err)
	}

	cfg := smsGateConfig("https://api.smsgate.io")
	cfg.Properties = map[string]string{}

	status, err := p.CheckStatus(context.Background(), "app-1", cfg)
	if err != nil {
		t.Fatalf("CheckStatus() unexpected error = %v", err)
	}
	if status != domain.StatusFailed {
		t.Fatalf("CheckStatus() = %s, want %s", status, domain.StatusFailed)
	}
}
