package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/models"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"gorm.io/gorm"
)

type RevisionRepository interface {
	BaseRepository[models.DesignRevision]
	GetCurrentByDesign(ctx context.Context, designID uuid.UUID, dest *models.DesignRevision) error
	GetByVersion(ctx context.Context, designID uuid.UUID, version int, dest *models.DesignRevision) error
	ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.DesignRevision, error)
	SaveNewVersion(ctx context.Context, rev *models.DesignRevision) error
	SetCurrent(ctx context.Context, designID uuid.UUID, version int) error
}

type revisionRepository struct {
	BaseRepository[models.DesignRevision]
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{BaseRepository: NewBaseRepository[models.DesignRevision](db), db: db}
}

func (r *revisionRepository) GetCurrentByDesign(ctx context.Context, designID uuid.UUID, dest *models.DesignRevision) error {
	if err := r.db.WithContext(ctx).Where("design_id = ? AND is_current = true", designID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no current revision found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get current revision failed")
	}
	return nil
}

func (r *revisionRepository) GetByVersion(ctx context.Context, designID uuid.UUID, version int, dest *models.DesignRevision) error {
	if err := r.db.WithContext(ctx).Where("design_id = ? AND version = ?", designID, version).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "revision not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get revision failed")
	}
	return nil
}

func (r *revisionRepository) ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.DesignRevision, error) {
	var out []models.DesignRevision
	if err := r.db.WithContext(ctx).Where("design_id = ?", designID).Order("version DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list revisions failed")
	}
	return out, nil
}

// SaveNewVersion assigns the next version number for the design, inserts the
// revision, and flips the current flag over to it in one transaction.
func (r *revisionRepository) SaveNewVersion(ctx context.Context, rev *models.DesignRevision) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	var maxVersion int
	if err := tx.Model(&models.DesignRevision{}).
		Where("design_id = ?", rev.DesignID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "resolve next version failed")
	}
	rev.Version = maxVersion + 1
	rev.IsCurrent = true

	if err := tx.Model(&models.DesignRevision{}).Where("design_id = ? AND is_current = true", rev.DesignID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
	}

	if err := tx.Create(rev).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "create revision failed")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

// SetCurrent marks the specified version as current and clears the previous
// current flag in a transaction.
func (r *revisionRepository) SetCurrent(ctx context.Context, designID uuid.UUID, version int) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := tx.Model(&models.DesignRevision{}).Where("design_id = ? AND is_current = true", designID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
	}

	res := tx.Model(&models.DesignRevision{}).Where("design_id = ? AND version = ?", designID, version).Update("is_current", true)
	if res.Error != nil {
		tx.Rollback()
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set current flag failed")
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return appErr.New(appErr.CodeNotFound, "revision not found")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}
