package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Volunteer is created lazily on a user's first authorized dashboard
// visit. Incidents reference it through assigned_volunteer_id; the
// back-reference is a lookup, not ownership.
type Volunteer struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	AvailabilityStatus bool `gorm:"default:true" json:"availability_status"`

	LocationLat *float64 `gorm:"type:decimal(10,8)" json:"location_lat"`
	LocationLng *float64 `gorm:"type:decimal(11,8)" json:"location_lng"`

	Skills         StringList `gorm:"type:text" json:"skills"`
	Certifications StringList `gorm:"type:text" json:"certifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Volunteer) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// StringList stores a []string as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}
}

// Request types

type UpdateAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type UpdateVolunteerLocationRequest struct {
	LocationLat *float64 `json:"location_lat" validate:"required,min=-90,max=90"`
	LocationLng *float64 `json:"location_lng" validate:"required,min=-180,max=180"`
}

// Response types

type VolunteerResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	AvailabilityStatus bool      `json:"availability_status"`
	LocationLat        *float64  `json:"location_lat,omitempty"`
	LocationLng        *float64  `json:"location_lng,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
	Certifications     []string  `json:"certifications,omitempty"`
}

func ToVolunteerResponse(v *Volunteer) VolunteerResponse {
	return VolunteerResponse{
		ID:                 v.ID,
		UserID:             v.UserID,
		AvailabilityStatus: v.AvailabilityStatus,
		LocationLat:        v.LocationLat,
		LocationLng:        v.LocationLng,
		Skills:             v.Skills,
		Certifications:     v.Certifications,
	}
}
