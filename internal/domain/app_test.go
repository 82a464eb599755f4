package domain

import (
	"errors"
	"testing"
)

func testApp() App {
	return App{
		ID:   "app-1",
		Name: "storefront",
		Integrations: []ConfiguredIntegration{
			{ID: "mail-primary", Type: "smtp", Status: StatusVerified, Enabled: true},
			{ID: "sms-backup", Type: "smsgate", Status: StatusPending, Enabled: true},
			{ID: "push-main", Type: "webhook", Status: StatusFailed, Enabled: true},
		},
	}
}

func TestAppValidate(t *testing.T) {
	t.Parallel()

	app := testApp()
	if err := app.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	app.Integrations = append(app.Integrations, ConfiguredIntegration{
		ID: "mail-primary", Type: "smtp", Status: StatusPending,
	})
	if err := app.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() with duplicate id error = %v, want ErrValidation", err)
	}
}

func TestAppIntegration(t *testing.T) {
	t.Parallel()

	app := testApp()

	ci, ok := app.Integration("sms-backup")
	if !ok {
		t.Fatal("Integration(sms-backup) not found")
	}
	if ci.Type != "smsgate" {
		t.Fatalf("Integration(sms-backup).Type = %s, want smsgate", ci.Type)
	}

	if _, ok := app.Integration("missing"); ok {
		t.Fatal("Integration(missing) found, want absent")
	}
}

func TestAppWithIntegrationPreservesPosition(t *testing.T) {
	t.Parallel()

	app := testApp()
	replaced := app.WithIntegration(ConfiguredIntegration{
		ID: "sms-backup", Type: "smsgate", Status: StatusVerified, Enabled: false,
	})

	if len(replaced.Integrations) != 3 {
		t.Fatalf("len(Integrations) = %d, want 3", len(replaced.Integrations))
	}
	if replaced.Integrations[1].ID != "sms-backup" {
		t.Fatalf("Integrations[1].ID = %s, want sms-backup", replaced.Integrations[1].ID)
	}
	if replaced.Integrations[1].Status != StatusVerified {
		t.Fatalf("Integrations[1].Status = %s, want %s", replaced.Integrations[1].Status, StatusVerified)
	}
	if app.Integrations[1].Status != StatusPending {
		t.Fatalf("original mutated, Integrations[1].Status = %s", app.Integrations[1].Status)
	}
}

func TestAppWithIntegrationAppendsNew(t *testing.T) {
	t.Parallel()

	app := testApp()
	grown := app.WithIntegration(ConfiguredIntegration{
		ID: "chat-main", Type: "webhook", Status: StatusPending, Enabled: true,
	})

	if len(grown.Integrations) != 4 {
		t.Fatalf("len(Integrations) = %d, want 4", len(grown.Integrations))
	}
	if grown.Integrations[3].ID != "chat-main" {
		t.Fatalf("Integrations[3].ID = %s, want chat-main", grown.Integrations[3].ID)
	}
}

func TestAppWithoutIntegration(t *testing.T) {
	t.Parallel()

	app := testApp()
	shrunk := app.WithoutIntegration("mail-primary")

	if len(shrunk.Integrations) != 2 {
		t.Fatalf("len(Integrations) = %d, want 2", len(shrunk.Integrations))
	}
	if shrunk.Integrations[0].ID != "sms-backup" {
		t.Fatalf("Integrations[0].ID = %s, want sms-backup", shrunk.Integrations[0].ID)
	}
	if len(app.Integrations) != 3 {
		t.Fatalf("original mutated, len = %d", len(app.Integrations))
	}
}

func TestAppWithStatuses(t *testing.T) {
	t.Parallel()

	app := testApp()
	updated := app.WithStatuses(map[string]IntegrationStatus{
		"sms-backup": StatusVerified,
		"missing":    StatusFailed,
	})

	if updated.Integrations[1].Status != StatusVerified {
		t.Fatalf("Integrations[1].Status = %s, want %s", updated.Integrations[1].Status, StatusVerified)
	}
	if updated.Integrations[0].Status != StatusVerified {
		t.Fatalf("Integrations[0].Status = %s, want untouched %s", updated.Integrations[0].Status, StatusVerified)
	}
	if app.Integrations[1].Status != StatusPending {
		t.Fatalf("original mutated, Integrations[1].Status = %s", app.Integrations[1].Status)
	}
}

func TestAppPendingIntegrations(t *testing.T) {
	t.Parallel()

	app := testApp()
	if !app.HasPendingIntegrations() {
		t.Fatal("HasPendingIntegrations() = false, want true")
	}

	pending := app.PendingIntegrations()
	if len(pending) != 1 {
		t.Fatalf("len(PendingIntegrations()) = %d, want 1", len(pending))
	}
	if pending[0].ID != "sms-backup" {
		t.Fatalf("PendingIntegrations()[0].ID = %s, want sms-backup", pending[0].ID)
	}

	settled := app.WithStatuses(map[string]IntegrationStatus{"sms-backup": StatusVerified})
	if settled.HasPendingIntegrations() {
		t.Fatal("HasPendingIntegrations() = true after settle, want false")
	}
}

func TestStatusUpdateBatch(t *testing.T) {
	t.Parallel()

	batch := NewStatusUpdateBatch("app-1")
	if !batch.Empty() {
		t.Fatal("Empty() = false for fresh batch")
	}

	batch.Record("sms-backup", StatusVerified)
	if batch.Empty() {
		t.Fatal("Empty() = true after Record")
	}
	if got := batch.Updates["sms-backup"]; got != StatusVerified {
		t.Fatalf("Updates[sms-backup] = %s, want %s", got, StatusVerified)
	}

	if err := batch.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	batch.AppID = ""
	if err := batch.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() with empty app id error = %v, want ErrValidation", err)
	}
}
