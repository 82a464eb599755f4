package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/kursadbilgin/integration-hub/internal/repository"
)

func createIntegrationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_integrations",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.IntegrationModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_integrations_pending ON integrations (app_id) WHERE status = 'PENDING'`,
				`CREATE INDEX IF NOT EXISTS idx_integrations_position ON integrations (app_id, position)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.IntegrationModel{})
		},
	}
}
