package main

import (
	"gorm.io/gorm"

	"github.com/stackcanvas/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.Design{},
		&models.DesignRevision{},
		&models.ExportArtifact{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}

	models := registerModels()
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addRevisionIndexes,
		addArtifactIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available. Must run before
// AutoMigrate because the uuid columns default to gen_random_uuid().
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addRevisionIndexes speeds up the current-revision lookup on session open
func addRevisionIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_design_current
		ON design_revisions(design_id)
		WHERE is_current AND deleted_at IS NULL
	`).Error
}

// addArtifactIndexes adds a partial index for pending-artifact scans
func addArtifactIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_export_artifacts_pending
		ON export_artifacts(design_id, created_at)
		WHERE status IN ('pending', 'building') AND deleted_at IS NULL
	`).Error
}
