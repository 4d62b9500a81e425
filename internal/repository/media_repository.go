package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"gorm.io/gorm"
)

type MediaRepository interface {
	Create(ctx context.Context, item *models.MediaItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]models.MediaItem, error)
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, item *models.MediaItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (r *mediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	var item models.MediaItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &item, nil
}

func (r *mediaRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]models.MediaItem, error) {
	var items []models.MediaItem
	err := r.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("uploaded_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return items, nil
}
