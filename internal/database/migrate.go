package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

// Migrate creates or updates the tables used by the integrity API.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassMember{},
		&models.Assignment{},
		&models.Submission{},
		&models.AnalysisMatrix{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
