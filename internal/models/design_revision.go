package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DesignRevision stores one immutable snapshot of a design's graph.
// Exactly one revision per design carries the is_current flag.
type DesignRevision struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DesignID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_revisions_design_version,unique" json:"design_id" validate:"required"`
	Version   int            `gorm:"not null;index:idx_revisions_design_version,unique" json:"version" validate:"gte=1"`
	Nodes     datatypes.JSON `gorm:"type:jsonb" json:"nodes" validate:"required"`
	Edges     datatypes.JSON `gorm:"type:jsonb" json:"edges" validate:"required"`
	IsCurrent bool           `gorm:"not null;default:false;index" json:"is_current"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
