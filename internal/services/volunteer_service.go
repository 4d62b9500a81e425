package services

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
)

type VolunteerService struct {
	volunteers repository.VolunteerRepository
	validate   *validator.Validate
}

func NewVolunteerService(volunteers repository.VolunteerRepository) *VolunteerService {
	return &VolunteerService{volunteers: volunteers, validate: validator.New()}
}

// EnsureVolunteer returns the caller's volunteer record, creating it on
// the first responder action.
func (s *VolunteerService) EnsureVolunteer(ctx context.Context, user *models.User) (*models.Volunteer, error) {
	if user == nil || !user.HasAnyRole(models.ResponderRoles...) {
		return nil, errs.ErrForbidden
	}
	return s.volunteers.EnsureForUser(ctx, user.ID)
}

func (s *VolunteerService) SetAvailability(ctx context.Context, user *models.User, req *models.UpdateAvailabilityRequest) (*models.Volunteer, error) {
	vol, err := s.EnsureVolunteer(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("", err.Error())
	}
	if err := s.volunteers.SetAvailability(ctx, vol.ID, *req.Available); err != nil {
		return nil, err
	}
	return s.volunteers.FindByID(ctx, vol.ID)
}

func (s *VolunteerService) UpdateLocation(ctx context.Context, user *models.User, req *models.UpdateVolunteerLocationRequest) error {
	vol, err := s.EnsureVolunteer(ctx, user)
	if err != nil {
		return err
	}
	if err := s.validate.Struct(req); err != nil {
		return errs.Validation("", err.Error())
	}
	return s.volunteers.UpdateLocation(ctx, vol.ID, *req.LocationLat, *req.LocationLng)
}

func (s *VolunteerService) ListAvailable(ctx context.Context) ([]models.Volunteer, error) {
	return s.volunteers.ListAvailable(ctx)
}

func (s *VolunteerService) Get(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	return s.volunteers.FindByID(ctx, id)
}
