package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Design is one saved canvas document. The graph itself lives in
// DesignRevision rows so every save keeps history.
type Design struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"not null;index" json:"name" validate:"required"`
	Description string         `gorm:"type:text" json:"description"`
	Archived    bool           `gorm:"not null;default:false;index" json:"archived"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
