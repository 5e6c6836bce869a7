package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExportArtifact is a generated IaC bundle for one revision of a design.
// The archive itself is stored inline; exports are small (a handful of
// text files) so a blob column beats a separate object store.
type ExportArtifact struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DesignID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"design_id" validate:"required"`
	RevisionID uuid.UUID      `gorm:"type:uuid;index" json:"revision_id"`
	Target     string         `gorm:"type:varchar(32);not null" json:"target" validate:"required,oneof=terraform pulumi"`
	Language   string         `gorm:"type:varchar(32)" json:"language,omitempty" validate:"omitempty,oneof=typescript python"`
	Filename   string         `gorm:"type:varchar(255);not null" json:"filename"`
	Status     string         `gorm:"type:varchar(32);index;not null" json:"status" validate:"required,oneof=pending building completed failed"`
	SizeBytes  int64          `json:"size_bytes"`
	Archive    []byte         `gorm:"type:bytea" json:"-"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
