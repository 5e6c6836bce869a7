package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/models"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"gorm.io/gorm"
)

type DesignRepository interface {
	BaseRepository[models.Design]
	List(ctx context.Context) ([]models.Design, error)
	Archive(ctx context.Context, designID uuid.UUID) error
}

type designRepository struct {
	BaseRepository[models.Design]
	db *gorm.DB
}

func NewDesignRepository(db *gorm.DB) DesignRepository {
	return &designRepository{BaseRepository: NewBaseRepository[models.Design](db), db: db}
}

func (r *designRepository) List(ctx context.Context) ([]models.Design, error) {
	var out []models.Design
	if err := r.db.WithContext(ctx).Where("archived = false").Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list designs failed")
	}
	return out, nil
}

func (r *designRepository) Archive(ctx context.Context, designID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Design{}).Where("id = ?", designID).Update("archived", true)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "archive design failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "design not found")
	}
	return nil
}
