package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/kursadbilgin/integration-hub/internal/repository"
)

func createAppsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_apps",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.AppModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AppModel{})
		},
	}
}
