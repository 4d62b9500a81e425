package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values mirror the app_role enum.
const (
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
	RoleTraveler  = "traveler"
	RoleAuthority = "authority"
)

// ResponderRoles are the roles allowed to reach the volunteer dashboard
// and act on incidents.
var ResponderRoles = []string{RoleVolunteer, RoleAuthority, RoleAdmin}

type Role struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code string    `gorm:"type:app_role;uniqueIndex;not null" json:"code"`
	Name string    `gorm:"size:100;not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// User is an authenticated account. Profile fields come from the
// reporter-facing app; emergency contacts are dialed when an incident
// involving the user escalates.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email    string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string    `gorm:"size:255;not null" json:"-"`

	FullName              string `gorm:"size:200" json:"full_name"`
	Phone                 string `gorm:"size:50" json:"phone"`
	EmergencyContactName  string `gorm:"size:200" json:"emergency_contact_name"`
	EmergencyContactPhone string `gorm:"size:50" json:"emergency_contact_phone"`

	Roles []Role `gorm:"many2many:user_roles;" json:"roles,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasRole checks the loaded roles; Roles must be preloaded.
func (u *User) HasRole(code string) bool {
	for _, r := range u.Roles {
		if r.Code == code {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of codes.
func (u *User) HasAnyRole(codes ...string) bool {
	for _, c := range codes {
		if u.HasRole(c) {
			return true
		}
	}
	return false
}

// Request types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName              *string `json:"full_name" validate:"omitempty,max=200"`
	Phone                 *string `json:"phone" validate:"omitempty,max=50"`
	EmergencyContactName  *string `json:"emergency_contact_name" validate:"omitempty,max=200"`
	EmergencyContactPhone *string `json:"emergency_contact_phone" validate:"omitempty,max=50"`
}

// Response types

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone,omitempty"`
	Roles    []string  `json:"roles,omitempty"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func ToUserResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
	}
	for _, r := range u.Roles {
		resp.Roles = append(resp.Roles, r.Code)
	}
	return resp
}
