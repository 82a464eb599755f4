package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kursadbilgin/integration-hub/internal/channel"
	"github.com/kursadbilgin/integration-hub/internal/condition"
	"github.com/kursadbilgin/integration-hub/internal/domain"
	"github.com/kursadbilgin/integration-hub/internal/provider"
)

type stubInstance struct {
	id string
}

func (s stubInstance) IntegrationID() string { return s.id }

type stubProvider struct {
	integrationType string
	capabilities    []domain.Capability
	createErr       error
}

func (s *stubProvider) Definition() provider.Definition {
	return provider.Definition{
		Type:         s.integrationType,
		Capabilities: s.capabilities,
	}
}

func (s *stubProvider) CanCreate(capability domain.Capability, _ domain.ConfiguredIntegration) bool {
	return s.Definition().HasCapability(capability)
}

func (s *stubProvider) Create(_ domain.Capability, cfg domain.ConfiguredIntegration, _ *domain.DeliveryTarget) (channel.Instance, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return stubInstance{id: cfg.ID}, nil
}

func (s *stubProvider) OnConfigured(context.Context, domain.App, domain.ConfiguredIntegration, *domain.ConfiguredIntegration) error {
	return nil
}

func (s *stubProvider) OnRemoved(context.Context, domain.App, domain.ConfiguredIntegration) error {
	return nil
}

func (s *stubProvider) CheckStatus(context.Context, string, domain.ConfiguredIntegration) (domain.IntegrationStatus, error) {
	return domain.StatusVerified, nil
}

func newTestResolver(t *testing.T, providers ...provider.Provider) *Resolver {
	t.Helper()

	registry := provider.NewRegistry(nil)
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	evaluator, err := condition.NewEvaluator(condition.NewCUEPredicate(), nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	r, err := NewResolver(registry, evaluator, nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(s string) *string { return &s }

func pushProvider() *stubProvider {
	return &stubProvider{
		integrationType: "pusher",
		capabilities:    []domain.Capability{domain.CapabilityPushSender},
	}
}

func resolvedIDs(resolved []Resolved) []string {
	ids := make([]string, 0, len(resolved))
	for _, r := range resolved {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestResolveAllFiltersReadiness(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "disabled", Type: "pusher", Status: domain.StatusVerified, Enabled: false},
			{ID: "pending", Type: "pusher", Status: domain.StatusPending, Enabled: true},
			{ID: "failed", Type: "pusher", Status: domain.StatusFailed, Enabled: true},
			{ID: "ready", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, nil))
	if want := []string{"ready"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll() = %v, want %v", got, want)
	}
}

func TestResolveAllDisabledExcludedEvenWithTarget(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "off", Type: "pusher", Status: domain.StatusVerified, Enabled: false, Test: boolPtr(true)},
		},
	}

	target := &domain.DeliveryTarget{Test: true}
	if got := r.ResolveAll(app, domain.CapabilityPushSender, target); len(got) != 0 {
		t.Fatalf("ResolveAll() = %v, want empty", resolvedIDs(got))
	}
}

func TestResolveAllTestFlagAgainstTarget(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "X", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "Y", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Test: boolPtr(false)},
		},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: true}))
	if want := []string{"X"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll(test=true) = %v, want %v", got, want)
	}

	got = resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: false}))
	if want := []string{"X", "Y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll(test=false) = %v, want %v", got, want)
	}
}

func TestResolveAllTestOnlyIntegrationExcludedFromLiveTarget(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "staging", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Test: boolPtr(true)},
		},
	}

	if got := r.ResolveAll(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: false}); len(got) != 0 {
		t.Fatalf("ResolveAll(live target) = %v, want empty", resolvedIDs(got))
	}
	if got := r.ResolveAll(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: true}); len(got) != 1 {
		t.Fatalf("ResolveAll(test target) = %v, want staging", resolvedIDs(got))
	}
}

func TestResolveAllConditions(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "unconditional", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "empty-condition", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Condition: strPtr("  ")},
			{ID: "eu-only", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Condition: strPtr(`region == "eu"`)},
			{ID: "us-only", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Condition: strPtr(`region == "us"`)},
			{ID: "broken", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Condition: strPtr(`region == `)},
		},
	}

	target := &domain.DeliveryTarget{
		Test:       false,
		Properties: map[string]any{"region": "eu"},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, target))
	if want := []string{"unconditional", "empty-condition", "eu-only"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll() = %v, want %v", got, want)
	}
}

func TestResolveAllWithoutTargetSkipsTargetGate(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "test-only", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Test: boolPtr(true)},
			{ID: "eu-only", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Condition: strPtr(`region == "eu"`)},
		},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, nil))
	if want := []string{"test-only", "eu-only"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll(no target) = %v, want %v", got, want)
	}
}

func TestResolveAllSkipsUnregisteredProvider(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "orphan", Type: "uninstalled", Status: domain.StatusVerified, Enabled: true},
			{ID: "ready", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, nil))
	if want := []string{"ready"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll() = %v, want %v", got, want)
	}
}

func TestResolveAllSkipsForeignCapability(t *testing.T) {
	t.Parallel()

	smsProvider := &stubProvider{
		integrationType: "smser",
		capabilities:    []domain.Capability{domain.CapabilitySMSSender},
	}
	r := newTestResolver(t, pushProvider(), smsProvider)

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "sms", Type: "smser", Status: domain.StatusVerified, Enabled: true},
			{ID: "push", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}

	got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, nil))
	if want := []string{"push"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveAll() = %v, want %v", got, want)
	}
}

func TestResolveAllSkipsFailingCreate(t *testing.T) {
	t.Parallel()

	broken := &stubProvider{
		integrationType: "pusher",
		capabilities:    []domain.Capability{domain.CapabilityPushSender},
		createErr:       errors.New("bad config"),
	}
	r := newTestResolver(t, broken)

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "push", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}

	if got := r.ResolveAll(app, domain.CapabilityPushSender, nil); len(got) != 0 {
		t.Fatalf("ResolveAll() = %v, want empty", resolvedIDs(got))
	}
}

func TestResolveAllDeterministicOrder(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "first", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "second", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "third", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}

	want := []string{"first", "second", "third"}
	for i := 0; i < 5; i++ {
		if got := resolvedIDs(r.ResolveAll(app, domain.CapabilityPushSender, nil)); !reflect.DeepEqual(got, want) {
			t.Fatalf("ResolveAll() call %d = %v, want %v", i, got, want)
		}
	}
}

func TestResolveByID(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "push-a", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "push-b", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
			{ID: "push-off", Type: "pusher", Status: domain.StatusVerified, Enabled: false},
		},
	}

	instance, ok := r.Resolve(app, domain.CapabilityPushSender, "push-b", nil)
	if !ok {
		t.Fatal("Resolve(push-b) = none, want instance")
	}
	if instance.IntegrationID() != "push-b" {
		t.Fatalf("IntegrationID() = %q, want push-b", instance.IntegrationID())
	}

	if _, ok := r.Resolve(app, domain.CapabilityPushSender, "push-off", nil); ok {
		t.Fatal("Resolve(push-off) resolved a disabled integration")
	}
	if _, ok := r.Resolve(app, domain.CapabilityPushSender, "missing", nil); ok {
		t.Fatal("Resolve(missing) = instance, want none")
	}
}

func TestIsConfigured(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "push", Type: "pusher", Status: domain.StatusVerified, Enabled: true, Test: boolPtr(true)},
		},
	}

	if !r.IsConfigured(app, domain.CapabilityPushSender, nil) {
		t.Fatal("IsConfigured(no target) = false, want true")
	}
	if !r.IsConfigured(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: true}) {
		t.Fatal("IsConfigured(test target) = false, want true")
	}
	if r.IsConfigured(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: false}) {
		t.Fatal("IsConfigured(live target) = true, want false")
	}
	if r.IsConfigured(app, domain.CapabilityEmailSender, nil) {
		t.Fatal("IsConfigured(EMAIL_SENDER) = true, want false")
	}
}

func TestResolverDoesNotMutateApp(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, pushProvider())

	app := domain.App{
		ID: "app-1",
		Integrations: []domain.ConfiguredIntegration{
			{ID: "push", Type: "pusher", Status: domain.StatusVerified, Enabled: true},
		},
	}
	snapshot := app.Integrations[0]

	_ = r.ResolveAll(app, domain.CapabilityPushSender, &domain.DeliveryTarget{Test: false})

	if !reflect.DeepEqual(app.Integrations[0], snapshot) {
		t.Fatalf("integration mutated by resolution: %+v", app.Integrations[0])
	}
}
