package services

import (
	"context"
	"fmt"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"go.uber.org/zap"
)

// PushSender delivers one alert to one recipient. Implementations talk
// to whatever push channel the deployment has; absence of a channel is
// normal and handled by the service.
type PushSender interface {
	Send(ctx context.Context, recipient, title, body string) error
}

// NotificationService alerts available responders about new incidents.
// Everything here is best effort: an alert that cannot be delivered is
// logged and forgotten, and the reporting path never waits on it.
type NotificationService struct {
	volunteers repository.VolunteerRepository
	logs       repository.NotificationLogRepository
	sender     PushSender
	logger     *zap.Logger
}

func NewNotificationService(
	volunteers repository.VolunteerRepository,
	logs repository.NotificationLogRepository,
	sender PushSender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		volunteers: volunteers,
		logs:       logs,
		sender:     sender,
		logger:     logger,
	}
}

// NotifyNewIncident fans an alert out to every available responder.
// Runs in its own goroutine so incident creation returns immediately.
func (s *NotificationService) NotifyNewIncident(ctx context.Context, incident *models.Incident) {
	go s.fanOut(incident)
}

func (s *NotificationService) fanOut(incident *models.Incident) {
	ctx := context.Background()

	available, err := s.volunteers.ListAvailable(ctx)
	if err != nil {
		s.logger.Warn("could not list responders for alert", zap.Error(err))
		return
	}
	if len(available) == 0 {
		return
	}

	title := fmt.Sprintf("New %s incident", incident.IncidentType)
	body := fmt.Sprintf("%s severity near (%.5f, %.5f)", incident.Severity, incident.LocationLat, incident.LocationLng)
	if incident.LocationAddress != nil && *incident.LocationAddress != "" {
		body = fmt.Sprintf("%s severity at %s", incident.Severity, *incident.LocationAddress)
	}

	for _, vol := range available {
		entry := &models.NotificationLog{
			IncidentID: &incident.ID,
			Channel:    "push",
			Recipient:  vol.UserID.String(),
			Body:       body,
		}
		switch {
		case s.sender == nil:
			// No channel configured; the incident is still visible on
			// the dashboard, so just record the skip.
			entry.Status = "skipped"
		case s.sender.Send(ctx, vol.UserID.String(), title, body) != nil:
			entry.Status = "failed"
		default:
			entry.Status = "sent"
		}

		if err := s.logs.Create(ctx, entry); err != nil {
			s.logger.Warn("notification log write failed", zap.Error(err))
		}
	}
}
