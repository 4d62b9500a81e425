package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/offline"
	"go.uber.org/zap"
)

// fakeIncidentRepo is an in-memory stand-in that preserves the
// conditional-write semantics of the real repository.
type fakeIncidentRepo struct {
	mu          sync.Mutex
	incidents   map[uuid.UUID]*models.Incident
	createErr   error
	createCalls int
}

func newFakeIncidentRepo() *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: make(map[uuid.UUID]*models.Incident)}
}

func (r *fakeIncidentRepo) Create(ctx context.Context, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	copied := *incident
	r.incidents[incident.ID] = &copied
	return nil
}

func (r *fakeIncidentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	copied := *incident
	return &copied, nil
}

func (r *fakeIncidentRepo) ListPending(ctx context.Context) ([]models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Incident
	for _, incident := range r.incidents {
		if incident.Status == models.StatusPending {
			out = append(out, *incident)
		}
	}
	return out, nil
}

func (r *fakeIncidentRepo) List(ctx context.Context, filter *models.IncidentFilter) ([]models.Incident, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Incident
	for _, incident := range r.incidents {
		out = append(out, *incident)
	}
	return out, int64(len(out)), nil
}

func (r *fakeIncidentRepo) Accept(ctx context.Context, incidentID, volunteerID uuid.UUID) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[incidentID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if incident.Status != models.StatusPending || incident.AssignedVolunteerID != nil {
		return nil, errs.ErrConflict
	}
	incident.Status = models.StatusAccepted
	vid := volunteerID
	incident.AssignedVolunteerID = &vid
	copied := *incident
	return &copied, nil
}

func (r *fakeIncidentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status, expectedAssignee *uuid.UUID, updates map[string]interface{}) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if incident.Status != from {
		return nil, errs.ErrConflict
	}
	if expectedAssignee != nil {
		if incident.AssignedVolunteerID == nil || *incident.AssignedVolunteerID != *expectedAssignee {
			return nil, errs.ErrConflict
		}
	}
	incident.Status = to
	if notes, ok := updates["volunteer_notes"].(string); ok {
		incident.VolunteerNotes = &notes
	}
	copied := *incident
	return &copied, nil
}

func (r *fakeIncidentRepo) BackfillAddress(ctx context.Context, id uuid.UUID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if incident, ok := r.incidents[id]; ok {
		incident.LocationAddress = &address
	}
	return nil
}

func (r *fakeIncidentRepo) Stats(ctx context.Context) (*models.IncidentStatsResponse, error) {
	return &models.IncidentStatsResponse{}, nil
}

type fakeVolunteerRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Volunteer
}

func newFakeVolunteerRepo() *fakeVolunteerRepo {
	return &fakeVolunteerRepo{byID: make(map[uuid.UUID]*models.Volunteer)}
}

func (r *fakeVolunteerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vol, ok := r.byID[id]; ok {
		return vol, nil
	}
	return nil, errs.ErrNotFound
}

func (r *fakeVolunteerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, vol := range r.byID {
		if vol.UserID == userID {
			return vol, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *fakeVolunteerRepo) EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Volunteer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, vol := range r.byID {
		if vol.UserID == userID {
			return vol, nil
		}
	}
	vol := &models.Volunteer{ID: uuid.New(), UserID: userID}
	r.byID[vol.ID] = vol
	return vol, nil
}

func (r *fakeVolunteerRepo) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return nil
}

func (r *fakeVolunteerRepo) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return nil
}

func (r *fakeVolunteerRepo) ListAvailable(ctx context.Context) ([]models.Volunteer, error) {
	return nil, nil
}

type stubGeocoder struct{ address string }

func (g stubGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	return g.address
}

func responderUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Roles: []models.Role{{Code: models.RoleVolunteer}},
	}
}

func newTestService(repo *fakeIncidentRepo, queue *offline.Queue) *IncidentService {
	return NewIncidentService(repo, newFakeVolunteerRepo(), queue, nil, stubGeocoder{address: "Address not available"}, nil, zap.NewNop())
}

func validReport() *models.ReportIncidentRequest {
	lat, lng := 28.61, 77.20
	return &models.ReportIncidentRequest{
		VoiceTranscript: "car flipped near the exit",
		IncidentType:    "accident",
		LocationLat:     &lat,
		LocationLng:     &lng,
	}
}

func TestReportRejectsMissingLocationBeforeAnyRepositoryCall(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	req := validReport()
	req.LocationLat = nil
	req.LocationLng = nil

	_, err := svc.Report(context.Background(), nil, req)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, 0, repo.createCalls, "no repository call on validation failure")
}

func TestReportPersistsWithDefaultSeverity(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)
	require.NotNil(t, outcome.Incident)
	assert.Nil(t, outcome.Queued)
	assert.Equal(t, models.StatusPending, outcome.Incident.Status)
	assert.Equal(t, models.SeverityHigh, outcome.Incident.Severity)
}

func TestReportReroutesToOfflineQueueWhenPersistenceFails(t *testing.T) {
	repo := newFakeIncidentRepo()
	repo.createErr = fmt.Errorf("%w: connection refused", errs.ErrPersistence)
	queue := offline.NewQueue(offline.NewMemoryStorage(), zap.NewNop())
	svc := newTestService(repo, queue)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)
	assert.Nil(t, outcome.Incident)
	require.NotNil(t, outcome.Queued)
	assert.Contains(t, outcome.Queued.ID, "offline-")

	count, err := queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAcceptExclusivityUnderConcurrency(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)
	incidentID := outcome.Incident.ID

	userA := responderUser()
	userB := responderUser()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, user := range []*models.User{userA, userB} {
		wg.Add(1)
		go func(i int, user *models.User) {
			defer wg.Done()
			_, results[i] = svc.Accept(context.Background(), user, incidentID)
		}(i, user)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one accept succeeds")
	assert.Equal(t, 1, conflicts, "the other observes a conflict")

	final, err := repo.FindByID(context.Background(), incidentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, final.Status)
	require.NotNil(t, final.AssignedVolunteerID)
}

func TestAcceptRequiresResponderRole(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)

	traveler := &models.User{ID: uuid.New(), Roles: []models.Role{{Code: models.RoleTraveler}}}
	_, err = svc.Accept(context.Background(), traveler, outcome.Incident.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.Accept(context.Background(), nil, outcome.Incident.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestLifecycleAdvancesOnlyForTheAssignee(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)
	id := outcome.Incident.ID

	owner := responderUser()
	intruder := responderUser()

	_, err = svc.Accept(context.Background(), owner, id)
	require.NoError(t, err)

	// A different responder cannot advance someone else's mission.
	_, err = svc.MarkOnTheWay(context.Background(), intruder, id, &models.OnTheWayRequest{})
	assert.ErrorIs(t, err, errs.ErrConflict)

	incident, err := svc.MarkOnTheWay(context.Background(), owner, id, &models.OnTheWayRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnTheWay, incident.Status)

	incident, err = svc.MarkArrived(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, incident.Status)

	notes := ""
	incident, err = svc.Complete(context.Background(), owner, id, &models.CompleteIncidentRequest{VolunteerNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, incident.Status)
}

func TestCompleteRequiresNotesField(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	outcome, err := svc.Report(context.Background(), nil, validReport())
	require.NoError(t, err)
	id := outcome.Incident.ID

	owner := responderUser()
	_, err = svc.Accept(context.Background(), owner, id)
	require.NoError(t, err)
	_, err = svc.MarkOnTheWay(context.Background(), owner, id, nil)
	require.NoError(t, err)
	_, err = svc.MarkArrived(context.Background(), owner, id)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), owner, id, &models.CompleteIncidentRequest{})
	assert.True(t, errs.IsValidation(err), "missing notes field is a validation error")
}

func TestCancelOnlyReporterOrAdmin(t *testing.T) {
	repo := newFakeIncidentRepo()
	svc := newTestService(repo, nil)

	reporter := &models.User{ID: uuid.New(), Roles: []models.Role{{Code: models.RoleTraveler}}}
	outcome, err := svc.Report(context.Background(), &reporter.ID, validReport())
	require.NoError(t, err)
	id := outcome.Incident.ID

	stranger := &models.User{ID: uuid.New(), Roles: []models.Role{{Code: models.RoleTraveler}}}
	_, err = svc.Cancel(context.Background(), stranger, id)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	incident, err := svc.Cancel(context.Background(), reporter, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, incident.Status)

	// Terminal; an admin cannot cancel it again.
	admin := &models.User{ID: uuid.New(), Roles: []models.Role{{Code: models.RoleAdmin}}}
	_, err = svc.Cancel(context.Background(), admin, id)
	assert.ErrorIs(t, err, errs.ErrConflict)
}
