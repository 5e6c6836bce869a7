package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/models"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"gorm.io/gorm"
)

type ArtifactRepository interface {
	BaseRepository[models.ExportArtifact]
	ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.ExportArtifact, error)
	UpdateStatus(ctx context.Context, artifactID uuid.UUID, status string) error
	MarkCompleted(ctx context.Context, artifactID uuid.UUID, archive []byte) error
	MarkFailed(ctx context.Context, artifactID uuid.UUID, reason string) error
}

type artifactRepository struct {
	BaseRepository[models.ExportArtifact]
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{BaseRepository: NewBaseRepository[models.ExportArtifact](db), db: db}
}

func (r *artifactRepository) ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.ExportArtifact, error) {
	var out []models.ExportArtifact
	if err := r.db.WithContext(ctx).Where("design_id = ?", designID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list artifacts failed")
	}
	return out, nil
}

func (r *artifactRepository) UpdateStatus(ctx context.Context, artifactID uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.ExportArtifact{}).Where("id = ?", artifactID).Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update artifact status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "artifact not found")
	}
	return nil
}

func (r *artifactRepository) MarkCompleted(ctx context.Context, artifactID uuid.UUID, archive []byte) error {
	res := r.db.WithContext(ctx).Model(&models.ExportArtifact{}).Where("id = ?", artifactID).Updates(map[string]any{
		"status":     "completed",
		"archive":    archive,
		"size_bytes": int64(len(archive)),
		"error":      "",
	})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "mark artifact completed failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "artifact not found")
	}
	return nil
}

func (r *artifactRepository) MarkFailed(ctx context.Context, artifactID uuid.UUID, reason string) error {
	res := r.db.WithContext(ctx).Model(&models.ExportArtifact{}).Where("id = ?", artifactID).Updates(map[string]any{
		"status": "failed",
		"error":  reason,
	})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "mark artifact failed failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "artifact not found")
	}
	return nil
}
