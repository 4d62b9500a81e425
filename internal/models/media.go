package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// MediaItem is evidence attached to an incident after creation. Media
// and incident persistence are independent: a failed upload never
// touches the parent incident.
type MediaItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	IncidentID uuid.UUID `gorm:"type:uuid;index;not null" json:"incident_id"`
	Incident   *Incident `gorm:"foreignKey:IncidentID" json:"incident,omitempty"`

	FilePath string   `gorm:"size:500;not null" json:"file_path"`
	FileType FileType `gorm:"size:10;not null" json:"file_type"`
	MimeType string   `gorm:"size:100;not null" json:"mime_type"`
	FileSize int64    `json:"file_size"`

	UploadedBy *uuid.UUID `gorm:"type:uuid;index" json:"uploaded_by"`

	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (m *MediaItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Response types

type MediaItemResponse struct {
	ID         uuid.UUID  `json:"id"`
	IncidentID uuid.UUID  `json:"incident_id"`
	FilePath   string     `json:"file_path"`
	FileType   FileType   `json:"file_type"`
	MimeType   string     `json:"mime_type"`
	FileSize   int64      `json:"file_size"`
	URL        string     `json:"url,omitempty"`
	UploadedBy *uuid.UUID `json:"uploaded_by,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// AttachResult reports the outcome of one file in an attach batch.
type AttachResult struct {
	FileName string             `json:"file_name"`
	Media    *MediaItemResponse `json:"media,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func ToMediaItemResponse(m *MediaItem, url string) MediaItemResponse {
	return MediaItemResponse{
		ID:         m.ID,
		IncidentID: m.IncidentID,
		FilePath:   m.FilePath,
		FileType:   m.FileType,
		MimeType:   m.MimeType,
		FileSize:   m.FileSize,
		URL:        url,
		UploadedBy: m.UploadedBy,
		UploadedAt: m.UploadedAt,
	}
}
