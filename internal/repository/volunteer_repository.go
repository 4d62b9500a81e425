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

type VolunteerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Volunteer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error)

	// EnsureForUser returns the user's volunteer record, creating it
	// on first authorized dashboard visit.
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error)

	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	ListAvailable(ctx context.Context) ([]models.Volunteer, error)
}

type volunteerRepository struct {
	db *gorm.DB
}

func NewVolunteerRepository(db *gorm.DB) VolunteerRepository {
	return &volunteerRepository{db: db}
}

func (r *volunteerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	err := r.db.WithContext(ctx).First(&volunteer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &volunteer, nil
}

func (r *volunteerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	err := r.db.WithContext(ctx).First(&volunteer, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &volunteer, nil
}

func (r *volunteerRepository) EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error) {
	volunteer, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return volunteer, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	created := &models.Volunteer{UserID: userID, AvailabilityStatus: true}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// A concurrent first visit may have created the row already.
		if existing, findErr := r.FindByUserID(ctx, userID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return created, nil
}

func (r *volunteerRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	err := r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Where("id = ?", id).
		Update("availability_status", available).Error
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (r *volunteerRepository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	err := r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"location_lat": lat,
			"location_lng": lng,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (r *volunteerRepository) ListAvailable(ctx context.Context) ([]models.Volunteer, error) {
	var volunteers []models.Volunteer
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("availability_status = ?", true).
		Find(&volunteers).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return volunteers, nil
}
