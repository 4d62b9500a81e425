package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/classifier"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/geocode"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/offline"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"go.uber.org/zap"
)

// Notifier alerts responders about new incidents. Delivery is best
// effort and never blocks or fails the reporting path.
type Notifier interface {
	NotifyNewIncident(ctx context.Context, incident *models.Incident)
}

// ReportOutcome tells the caller where the report landed: persisted
// straight away, or captured in the offline queue for a later drain.
type ReportOutcome struct {
	Incident *models.Incident
	Queued   *offline.QueuedIncident
}

type IncidentService struct {
	repo       repository.IncidentRepository
	volunteers repository.VolunteerRepository
	queue      *offline.Queue
	verdicts   classifier.VerdictProvider
	geocoder   geocode.Geocoder
	notifier   Notifier
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewIncidentService(
	repo repository.IncidentRepository,
	volunteers repository.VolunteerRepository,
	queue *offline.Queue,
	verdicts classifier.VerdictProvider,
	geocoder geocode.Geocoder,
	notifier Notifier,
	logger *zap.Logger,
) *IncidentService {
	return &IncidentService{
		repo:       repo,
		volunteers: volunteers,
		queue:      queue,
		verdicts:   verdicts,
		geocoder:   geocoder,
		notifier:   notifier,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Report validates and persists a new incident. Validation failures
// reject the report before any repository call. When persistence is
// unreachable and a queue is wired, the report is captured offline
// instead of being lost.
func (s *IncidentService) Report(ctx context.Context, reporterID *uuid.UUID, req *models.ReportIncidentRequest) (*ReportOutcome, error) {
	incident, err := s.buildIncident(ctx, reporterID, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		if s.queue != nil && errors.Is(err, errs.ErrPersistence) {
			queued, qerr := s.queue.Enqueue(ctx, *req)
			if qerr != nil {
				return nil, err
			}
			s.logger.Warn("persistence unreachable, incident captured offline",
				zap.String("queue_id", queued.ID))
			return &ReportOutcome{Queued: &queued}, nil
		}
		return nil, err
	}

	if incident.LocationAddress == nil {
		go s.backfillAddress(incident.ID, incident.LocationLat, incident.LocationLng)
	}
	if s.notifier != nil {
		s.notifier.NotifyNewIncident(ctx, incident)
	}

	return &ReportOutcome{Incident: incident}, nil
}

// SubmitQueued replays one offline-captured report through the normal
// persistence path. Used by the queue drainer.
func (s *IncidentService) SubmitQueued(ctx context.Context, req models.ReportIncidentRequest) error {
	incident, err := s.buildIncident(ctx, nil, &req)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return err
	}
	if incident.LocationAddress == nil {
		go s.backfillAddress(incident.ID, incident.LocationLat, incident.LocationLng)
	}
	if s.notifier != nil {
		s.notifier.NotifyNewIncident(ctx, incident)
	}
	return nil
}

func (s *IncidentService) buildIncident(ctx context.Context, reporterID *uuid.UUID, req *models.ReportIncidentRequest) (*models.Incident, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("", err.Error())
	}
	// The struct tags keep coordinates optional so the message decodes;
	// the domain does not. No fix, no incident.
	if req.LocationLat == nil || req.LocationLng == nil {
		return nil, errs.Validation("location", "a resolved location fix is required")
	}

	verdict := ""
	if s.verdicts != nil {
		label := ""
		if req.LocationAddress != nil {
			label = *req.LocationAddress
		}
		verdict = s.verdicts.Assess(ctx, req.VoiceTranscript, req.IncidentType, label)
	}

	return &models.Incident{
		VoiceTranscript: req.VoiceTranscript,
		Description:     req.Description,
		IncidentType:    models.IncidentType(req.IncidentType),
		Severity:        ClassifySeverity(req.VoiceTranscript, verdict),
		Status:          models.StatusPending,
		LocationLat:     *req.LocationLat,
		LocationLng:     *req.LocationLng,
		LocationAddress: req.LocationAddress,
		ReporterID:      reporterID,
	}, nil
}

// backfillAddress resolves and stores a display address after the
// incident already exists. Failures leave the address null; nothing
// downstream depends on it.
func (s *IncidentService) backfillAddress(id uuid.UUID, lat, lng float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	address := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if address == geocode.AddressUnavailable {
		return
	}
	if err := s.repo.BackfillAddress(ctx, id, address); err != nil {
		s.logger.Warn("address backfill failed",
			zap.String("incident_id", id.String()),
			zap.Error(err))
	}
}

// Accept claims a pending incident for the acting responder. Exactly
// one of any number of racing responders wins; the rest get
// errs.ErrConflict.
func (s *IncidentService) Accept(ctx context.Context, user *models.User, incidentID uuid.UUID) (*models.Incident, error) {
	if err := requireResponder(user); err != nil {
		return nil, err
	}
	vol, err := s.volunteers.EnsureForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.repo.Accept(ctx, incidentID, vol.ID)
}

// MarkOnTheWay moves an accepted incident forward. Only the assigned
// responder may advance it.
func (s *IncidentService) MarkOnTheWay(ctx context.Context, user *models.User, incidentID uuid.UUID, req *models.OnTheWayRequest) (*models.Incident, error) {
	vol, err := s.actingAssignee(ctx, user)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req != nil && req.EstimatedArrival != nil {
		eta, err := time.Parse(time.RFC3339, *req.EstimatedArrival)
		if err != nil {
			return nil, errs.Validation("estimated_arrival", "must be an RFC 3339 timestamp")
		}
		updates["estimated_arrival"] = eta
	}

	return s.repo.UpdateStatus(ctx, incidentID, models.StatusAccepted, models.StatusOnTheWay, &vol.ID, updates)
}

// MarkArrived records that the assigned responder is on scene.
func (s *IncidentService) MarkArrived(ctx context.Context, user *models.User, incidentID uuid.UUID) (*models.Incident, error) {
	vol, err := s.actingAssignee(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, incidentID, models.StatusOnTheWay, models.StatusArrived, &vol.ID, nil)
}

// Complete closes out an arrived incident. Notes are mandatory, though
// they may be empty; resolution time is stamped server-side.
func (s *IncidentService) Complete(ctx context.Context, user *models.User, incidentID uuid.UUID, req *models.CompleteIncidentRequest) (*models.Incident, error) {
	vol, err := s.actingAssignee(ctx, user)
	if err != nil {
		return nil, err
	}
	if req == nil || req.VolunteerNotes == nil {
		return nil, errs.Validation("volunteer_notes", "field is required")
	}

	updates := map[string]interface{}{
		"volunteer_notes": *req.VolunteerNotes,
		"resolved_at":     time.Now().UTC(),
	}
	return s.repo.UpdateStatus(ctx, incidentID, models.StatusArrived, models.StatusCompleted, &vol.ID, updates)
}

// StartProgress takes the compatibility path for rows driven by older
// clients: pending straight to in_progress, no assignment.
func (s *IncidentService) StartProgress(ctx context.Context, user *models.User, incidentID uuid.UUID) (*models.Incident, error) {
	if err := requireResponder(user); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, incidentID, models.StatusPending, models.StatusInProgress, nil, nil)
}

// Resolve closes an in_progress incident on the compatibility path.
func (s *IncidentService) Resolve(ctx context.Context, user *models.User, incidentID uuid.UUID) (*models.Incident, error) {
	if err := requireResponder(user); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"resolved_at": time.Now().UTC()}
	return s.repo.UpdateStatus(ctx, incidentID, models.StatusInProgress, models.StatusResolved, nil, updates)
}

// Cancel withdraws a still-pending incident. Only the reporter or an
// admin may do it.
func (s *IncidentService) Cancel(ctx context.Context, user *models.User, incidentID uuid.UUID) (*models.Incident, error) {
	incident, err := s.repo.FindByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	isReporter := incident.ReporterID != nil && user != nil && *incident.ReporterID == user.ID
	isAdmin := user != nil && user.HasRole(models.RoleAdmin)
	if !isReporter && !isAdmin {
		return nil, errs.ErrForbidden
	}

	return s.repo.UpdateStatus(ctx, incidentID, models.StatusPending, models.StatusCancelled, nil, nil)
}

func (s *IncidentService) Get(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *IncidentService) ListPending(ctx context.Context) ([]models.Incident, error) {
	return s.repo.ListPending(ctx)
}

func (s *IncidentService) List(ctx context.Context, filter *models.IncidentFilter) ([]models.Incident, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *IncidentService) Stats(ctx context.Context) (*models.IncidentStatsResponse, error) {
	return s.repo.Stats(ctx)
}

// actingAssignee resolves the caller's volunteer record for transitions
// that only the assignee may perform. The repository re-checks the
// assignment in the conditional write.
func (s *IncidentService) actingAssignee(ctx context.Context, user *models.User) (*models.Volunteer, error) {
	if err := requireResponder(user); err != nil {
		return nil, err
	}
	return s.volunteers.EnsureForUser(ctx, user.ID)
}

func requireResponder(user *models.User) error {
	if user == nil || !user.HasAnyRole(models.ResponderRoles...) {
		return errs.ErrForbidden
	}
	return nil
}
