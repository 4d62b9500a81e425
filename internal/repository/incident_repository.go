package repository

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"gorm.io/gorm"
)

// EventPublisher receives insert/update events after successful writes.
// Publishing is best-effort; consumers must not assume an event arrives
// synchronously with the write it describes.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent)
}

type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListPending(ctx context.Context) ([]models.Incident, error)
	List(ctx context.Context, filter *models.IncidentFilter) ([]models.Incident, int64, error)

	// Accept atomically claims a pending, unassigned incident for a
	// volunteer. Exactly one of two racing callers wins; the loser
	// gets errs.ErrConflict.
	Accept(ctx context.Context, incidentID, volunteerID uuid.UUID) (*models.Incident, error)

	// UpdateStatus applies updates only when the row is still in the
	// expected prior status, keeping transitions monotonic under
	// concurrent writers. expectedAssignee, when non-nil, must also
	// match at write time.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status, expectedAssignee *uuid.UUID, updates map[string]interface{}) (*models.Incident, error)

	BackfillAddress(ctx context.Context, id uuid.UUID, address string) error
	Stats(ctx context.Context) (*models.IncidentStatsResponse, error)
}

type incidentRepository struct {
	db     *gorm.DB
	events EventPublisher
}

// NewIncidentRepository wires an optional event publisher; pass nil to
// skip change events (tests, batch jobs).
func NewIncidentRepository(db *gorm.DB, events EventPublisher) IncidentRepository {
	return &incidentRepository{db: db, events: events}
}

func (r *incidentRepository) publish(ctx context.Context, kind string, incident *models.Incident) {
	if r.events == nil {
		return
	}
	r.events.Publish(ctx, models.ChangeEvent{
		Kind:     kind,
		Incident: models.ToIncidentResponse(incident),
		At:       time.Now().UTC(),
	})
}

func (r *incidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if err := r.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	r.publish(ctx, "insert", incident)
	return nil
}

func (r *incidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	err := r.db.WithContext(ctx).
		Preload("AssignedVolunteer").
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at DESC")
		}).
		First(&incident, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &incident, nil
}

func (r *incidentRepository) ListPending(ctx context.Context) ([]models.Incident, error) {
	var incidents []models.Incident
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return incidents, nil
}

func (r *incidentRepository) List(ctx context.Context, filter *models.IncidentFilter) ([]models.Incident, int64, error) {
	var incidents []models.Incident
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Incident{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IncidentType != nil {
		query = query.Where("incident_type = ?", *filter.IncidentType)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.ReporterID != nil {
		query = query.Where("reporter_id = ?", *filter.ReporterID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assigned_volunteer_id = ?", *filter.AssigneeID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	err := query.
		Preload("AssignedVolunteer").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&incidents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	return incidents, total, nil
}

func (r *incidentRepository) Accept(ctx context.Context, incidentID, volunteerID uuid.UUID) (*models.Incident, error) {
	// The WHERE clause is the whole point: the claim only lands while
	// the row is still pending and unassigned, so two racing
	// volunteers cannot both win.
	result := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ? AND status = ? AND assigned_volunteer_id IS NULL", incidentID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":                models.StatusAccepted,
			"assigned_volunteer_id": volunteerID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a lost race from a bad id.
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Incident{}).Where("id = ?", incidentID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
		if count == 0 {
			return nil, errs.ErrNotFound
		}
		return nil, errs.ErrConflict
	}

	incident, err := r.FindByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, "update", incident)
	return incident, nil
}

func (r *incidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status, expectedAssignee *uuid.UUID, updates map[string]interface{}) (*models.Incident, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	query := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ? AND status = ?", id, from)
	if expectedAssignee != nil {
		query = query.Where("assigned_volunteer_id = ?", *expectedAssignee)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Incident{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
		if count == 0 {
			return nil, errs.ErrNotFound
		}
		return nil, errs.ErrConflict
	}

	incident, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, "update", incident)
	return incident, nil
}

func (r *incidentRepository) BackfillAddress(ctx context.Context, id uuid.UUID, address string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ?", id).
		Update("location_address", address).Error
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (r *incidentRepository) Stats(ctx context.Context) (*models.IncidentStatsResponse, error) {
	stats := &models.IncidentStatsResponse{
		ByType:     make(map[string]int64),
		BySeverity: make(map[string]int64),
		ByStatus:   make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&models.Incident{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	type bucket struct {
		Key   string `gorm:"column:key"`
		Count int64  `gorm:"column:count"`
	}

	grouped := []struct {
		column string
		into   map[string]int64
	}{
		{"incident_type", stats.ByType},
		{"severity", stats.BySeverity},
		{"status", stats.ByStatus},
	}
	for _, g := range grouped {
		var rows []bucket
		err := r.db.WithContext(ctx).Model(&models.Incident{}).
			Select(g.column + " as key, count(*) as count").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
		for _, row := range rows {
			g.into[row.Key] = row.Count
		}
	}

	stats.Pending = stats.ByStatus[string(models.StatusPending)]
	stats.Active = stats.ByStatus[string(models.StatusAccepted)] +
		stats.ByStatus[string(models.StatusOnTheWay)] +
		stats.ByStatus[string(models.StatusArrived)] +
		stats.ByStatus[string(models.StatusInProgress)]
	stats.Resolved = stats.ByStatus[string(models.StatusResolved)] +
		stats.ByStatus[string(models.StatusCompleted)]

	// Average reporter-to-resolution time over closed incidents.
	var avgMinutes *float64
	err := r.db.WithContext(ctx).Model(&models.Incident{}).
		Select("AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 60)").
		Where("resolved_at IS NOT NULL").
		Scan(&avgMinutes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if avgMinutes != nil {
		stats.AvgResponseMinutes = *avgMinutes
	}

	return stats, nil
}
