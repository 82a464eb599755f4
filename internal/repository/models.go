package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// AppModel is the persistence model for the apps table.
type AppModel struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AppModel) TableName() string {
	return "apps"
}

// IntegrationModel is the persistence model for integrations. The position
// column preserves configuration order; ids are unique per app.
type IntegrationModel struct {
	AppID      string  `gorm:"type:varchar(64);primaryKey"`
	ID         string  `gorm:"type:varchar(64);primaryKey"`
	Type       string  `gorm:"type:varchar(64);not null"`
	Properties jsonMap `gorm:"type:jsonb"`
	Enabled    bool    `gorm:"not null;default:true"`
	Test       *bool
	Condition  *string                  `gorm:"type:text"`
	Status     domain.IntegrationStatus `gorm:"type:varchar(20);not null"`
	Position   int                      `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (IntegrationModel) TableName() string {
	return "integrations"
}

// VerificationAttemptModel is the persistence model for verification_attempts.
type VerificationAttemptModel struct {
	ID            string                   `gorm:"type:uuid;primaryKey"`
	AppID         string                   `gorm:"type:varchar(64);not null"`
	IntegrationID string                   `gorm:"type:varchar(64);not null"`
	FromStatus    domain.IntegrationStatus `gorm:"type:varchar(20);not null"`
	ToStatus      domain.IntegrationStatus `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time
}

func (VerificationAttemptModel) TableName() string {
	return "verification_attempts"
}

// jsonMap stores a string map as a jsonb column.
type jsonMap map[string]string

func (m jsonMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *jsonMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, (*map[string]string)(m))
}

func appModelFromDomain(app domain.App) *AppModel {
	return &AppModel{
		ID:   app.ID,
		Name: app.Name,
	}
}

func appModelToDomain(m *AppModel, integrations []IntegrationModel) domain.App {
	if m == nil {
		return domain.App{}
	}

	app := domain.App{
		ID:   m.ID,
		Name: m.Name,
	}
	if len(integrations) > 0 {
		app.Integrations = make([]domain.ConfiguredIntegration, 0, len(integrations))
		for i := range integrations {
			app.Integrations = append(app.Integrations, integrationModelToDomain(&integrations[i]))
		}
	}
	return app
}

func integrationModelFromDomain(appID string, position int, ci domain.ConfiguredIntegration) IntegrationModel {
	return IntegrationModel{
		AppID:      appID,
		ID:         ci.ID,
		Type:       ci.Type,
		Properties: jsonMap(ci.Properties),
		Enabled:    ci.Enabled,
		Test:       ci.Test,
		Condition:  ci.Condition,
		Status:     ci.Status,
		Position:   position,
	}
}

func integrationModelToDomain(m *IntegrationModel) domain.ConfiguredIntegration {
	if m == nil {
		return domain.ConfiguredIntegration{}
	}

	return domain.ConfiguredIntegration{
		ID:         m.ID,
		Type:       m.Type,
		Properties: map[string]string(m.Properties),
		Enabled:    m.Enabled,
		Test:       m.Test,
		Condition:  m.Condition,
		Status:     m.Status,
	}
}

func attemptModelFromDomain(a *domain.VerificationAttempt) *VerificationAttemptModel {
	if a == nil {
		return nil
	}

	return &VerificationAttemptModel{
		ID:            a.ID,
		AppID:         a.AppID,
		IntegrationID: a.IntegrationID,
		FromStatus:    a.FromStatus,
		ToStatus:      a.ToStatus,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *VerificationAttemptModel) *domain.VerificationAttempt {
	if m == nil {
		return nil
	}

	return &domain.VerificationAttempt{
		ID:            m.ID,
		AppID:         m.AppID,
		IntegrationID: m.IntegrationID,
		FromStatus:    m.FromStatus,
		ToStatus:      m.ToStatus,
		CreatedAt:     m.CreatedAt,
	}
}
