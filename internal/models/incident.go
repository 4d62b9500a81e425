package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IncidentType categorizes what the reporter encountered on the road.
type IncidentType string

const (
	TypeAccident  IncidentType = "accident"
	TypeBreakdown IncidentType = "breakdown"
	TypeMedical   IncidentType = "medical"
	TypeFire      IncidentType = "fire"
	TypeOther     IncidentType = "other"
)

func (t IncidentType) Valid() bool {
	switch t {
	case TypeAccident, TypeBreakdown, TypeMedical, TypeFire, TypeOther:
		return true
	}
	return false
}

// Severity is the coarse urgency classification attached at creation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Status is a single closed enum covering both lifecycle paths.
//
// Primary path:  pending -> accepted -> on_the_way -> arrived -> completed
// Legacy path:   pending -> in_progress -> resolved
// Cancellation:  pending -> cancelled
//
// The first transition taken from pending pins the incident to one
// path; an incident that reaches in_progress stays on the legacy path
// permanently. The legacy path exists only for compatibility with
// already persisted rows.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusOnTheWay   Status = "on_the_way"
	StatusArrived    Status = "arrived"
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

// statusGraph holds every valid transition. Anything absent is
// rejected, so steps can neither be skipped nor reversed.
var statusGraph = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusInProgress, StatusCancelled},
	StatusAccepted:   {StatusOnTheWay},
	StatusOnTheWay:   {StatusArrived},
	StatusArrived:    {StatusCompleted},
	StatusInProgress: {StatusResolved},
}

// CanTransition reports whether from -> to is a valid lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range statusGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return len(statusGraph[s]) == 0
}

// RequiresAssignee reports whether s implies a non-null assigned
// volunteer. Holds for every status at or beyond accepted on the
// primary path.
func (s Status) RequiresAssignee() bool {
	switch s {
	case StatusAccepted, StatusOnTheWay, StatusArrived, StatusCompleted:
		return true
	}
	return false
}

// Incident is a single reported highway emergency.
type Incident struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	VoiceTranscript string `gorm:"type:text" json:"voice_transcript"`
	Description     string `gorm:"type:text" json:"description"`

	IncidentType IncidentType `gorm:"type:incident_type;not null;index" json:"incident_type"`
	Severity     Severity     `gorm:"type:incident_severity;not null;index" json:"severity"`
	Status       Status       `gorm:"type:incident_status;not null;default:'pending';index" json:"status"`

	// Location is mandatory; an incident cannot exist without a fix.
	// The address is best-effort and backfilled asynchronously.
	LocationLat     float64 `gorm:"type:decimal(10,8);not null" json:"location_lat"`
	LocationLng     float64 `gorm:"type:decimal(11,8);not null" json:"location_lng"`
	LocationAddress *string `gorm:"size:500" json:"location_address"`

	ReporterID *uuid.UUID `gorm:"type:uuid;index" json:"reporter_id"`
	Reporter   *User      `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	AssignedVolunteerID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_volunteer_id"`
	AssignedVolunteer   *Volunteer `gorm:"foreignKey:AssignedVolunteerID" json:"assigned_volunteer,omitempty"`

	VolunteerNotes   *string    `gorm:"type:text" json:"volunteer_notes"`
	EstimatedArrival *time.Time `json:"estimated_arrival"`

	Media []MediaItem `gorm:"foreignKey:IncidentID" json:"media,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Request types

type ReportIncidentRequest struct {
	VoiceTranscript string   `json:"voice_transcript"`
	Description     string   `json:"description"`
	IncidentType    string   `json:"incident_type" validate:"required,oneof=accident breakdown medical fire other"`
	LocationLat     *float64 `json:"location_lat" validate:"omitempty,min=-90,max=90"`
	LocationLng     *float64 `json:"location_lng" validate:"omitempty,min=-180,max=180"`
	LocationAddress *string  `json:"location_address"`
}

type CompleteIncidentRequest struct {
	// May be the empty string, but the field must be sent.
	VolunteerNotes *string `json:"volunteer_notes" validate:"required"`
}

type OnTheWayRequest struct {
	EstimatedArrival *string `json:"estimated_arrival"`
}

type IncidentFilter struct {
	Status       *Status       `json:"status"`
	IncidentType *IncidentType `json:"incident_type"`
	Severity     *Severity     `json:"severity"`
	ReporterID   *uuid.UUID    `json:"reporter_id"`
	AssigneeID   *uuid.UUID    `json:"assignee_id"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

// Response types

type IncidentResponse struct {
	ID                  uuid.UUID           `json:"id"`
	VoiceTranscript     string              `json:"voice_transcript,omitempty"`
	Description         string              `json:"description"`
	IncidentType        IncidentType        `json:"incident_type"`
	Severity            Severity            `json:"severity"`
	Status              Status              `json:"status"`
	LocationLat         float64             `json:"location_lat"`
	LocationLng         float64             `json:"location_lng"`
	LocationAddress     *string             `json:"location_address"`
	ReporterID          *uuid.UUID          `json:"reporter_id,omitempty"`
	AssignedVolunteerID *uuid.UUID          `json:"assigned_volunteer_id,omitempty"`
	AssignedVolunteer   *VolunteerResponse  `json:"assigned_volunteer,omitempty"`
	VolunteerNotes      *string             `json:"volunteer_notes,omitempty"`
	EstimatedArrival    *time.Time          `json:"estimated_arrival,omitempty"`
	Media               []MediaItemResponse `json:"media,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	ResolvedAt          *time.Time          `json:"resolved_at,omitempty"`
}

type IncidentStatsResponse struct {
	Total              int64            `json:"total"`
	Pending            int64            `json:"pending"`
	Active             int64            `json:"active"`
	Resolved           int64            `json:"resolved"`
	ByType             map[string]int64 `json:"by_type"`
	BySeverity         map[string]int64 `json:"by_severity"`
	ByStatus           map[string]int64 `json:"by_status"`
	AvgResponseMinutes float64          `json:"avg_response_minutes"`
}

// ChangeEvent is what the realtime feed carries for each insert/update.
type ChangeEvent struct {
	Kind     string           `json:"kind"` // "insert" or "update"
	Incident IncidentResponse `json:"incident"`
	At       time.Time        `json:"at"`
}

// Converter functions

func ToIncidentResponse(i *Incident) IncidentResponse {
	resp := IncidentResponse{
		ID:                  i.ID,
		VoiceTranscript:     i.VoiceTranscript,
		Description:         i.Description,
		IncidentType:        i.IncidentType,
		Severity:            i.Severity,
		Status:              i.Status,
		LocationLat:         i.LocationLat,
		LocationLng:         i.LocationLng,
		LocationAddress:     i.LocationAddress,
		ReporterID:          i.ReporterID,
		AssignedVolunteerID: i.AssignedVolunteerID,
		VolunteerNotes:      i.VolunteerNotes,
		EstimatedArrival:    i.EstimatedArrival,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
		ResolvedAt:          i.ResolvedAt,
	}

	if i.AssignedVolunteer != nil {
		volResp := ToVolunteerResponse(i.AssignedVolunteer)
		resp.AssignedVolunteer = &volResp
	}

	if len(i.Media) > 0 {
		resp.Media = make([]MediaItemResponse, len(i.Media))
		for idx, m := range i.Media {
			resp.Media[idx] = ToMediaItemResponse(&m, "")
		}
	}

	return resp
}
