package domain

import (
	"fmt"
	"strings"
)

// IntegrationStatus represents the verification state of a configured integration.
type IntegrationStatus string

const (
	StatusPending  IntegrationStatus = "PENDING"
	StatusVerified IntegrationStatus = "VERIFIED"
	StatusFailed   IntegrationStatus = "FAILED"
)

func (s IntegrationStatus) String() string { return string(s) }

func (s IntegrationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusFailed:
		return true
	}
	return false
}

func ParseIntegrationStatusFromString(s string) (IntegrationStatus, error) {
	st := IntegrationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid integration status %q", ErrValidation, s)
	}
	return st, nil
}

// Field limits for configured integrations.
const (
	MaxIntegrationIDLength = 64
	MaxPropertyValueLength = 2048
	MaxPropertiesPerConfig = 64
)

// ConfiguredIntegration is one tenant-configured connection to a channel
// provider. It is a value type: mutation helpers return fresh copies so
// readers always operate on consistent snapshots.
type ConfiguredIntegration struct {
	ID         string
	Type       string
	Properties map[string]string
	Enabled    bool
	Test       *bool
	Condition  *string
	Status     IntegrationStatus
}

func (ci ConfiguredIntegration) Validate() error {
	if strings.TrimSpace(ci.ID) == "" {
		return fmt.Errorf("%w: integration id is required", ErrValidation)
	}
	if len(ci.ID) > MaxIntegrationIDLength {
		return fmt.Errorf("%w: integration id exceeds %d characters", ErrValidation, MaxIntegrationIDLength)
	}
	if strings.TrimSpace(ci.Type) == "" {
		return fmt.Errorf("%w: integration type is required", ErrValidation)
	}
	if !ci.Status.IsValid() {
		return fmt.Errorf("%w: invalid integration status %q", ErrValidation, ci.Status)
	}
	if len(ci.Properties) > MaxPropertiesPerConfig {
		return fmt.Errorf("%w: more than %d properties configured", ErrValidation, MaxPropertiesPerConfig)
	}
	for name, value := range ci.Properties {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: property name must not be blank", ErrValidation)
		}
		if len(value) > MaxPropertyValueLength {
			return fmt.Errorf("%w: property %q exceeds %d characters", ErrValidation, name, MaxPropertyValueLength)
		}
	}
	return nil
}

// Property returns the configured value for name, or "" when absent.
func (ci ConfiguredIntegration) Property(name string) string {
	return ci.Properties[name]
}

// MatchesTest reports whether the integration applies to a delivery in the
// given test mode. An unset test flag matches both modes.
func (ci ConfiguredIntegration) MatchesTest(test bool) bool {
	return ci.Test == nil || *ci.Test == test
}

// ConditionExpr returns the routing condition, or "" when none is set.
func (ci ConfiguredIntegration) ConditionExpr() string {
	if ci.Condition == nil {
		return ""
	}
	return strings.TrimSpace(*ci.Condition)
}

// WithStatus returns a copy of the integration carrying the new status.
func (ci ConfiguredIntegration) WithStatus(status IntegrationStatus) ConfiguredIntegration {
	next := ci
	next.Status = status
	return next
}

// WithProperties returns a copy of the integration carrying a cloned
// property bag.
func (ci ConfiguredIntegration) WithProperties(properties map[string]string) ConfiguredIntegration {
	next := ci
	next.Properties = cloneProperties(properties)
	return next
}

func cloneProperties(properties map[string]string) map[string]string {
	if properties == nil {
		return nil
	}
	cloned := make(map[string]string, len(properties))
	for name, value := range properties {
		cloned[name] = value
	}
	return cloned
}
