package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"go.uber.org/zap"
)

const (
	// MaxFilesPerAttach caps one attach call, not the incident total.
	MaxFilesPerAttach = 5
	// MaxFileSize is the per-file cap in bytes.
	MaxFileSize = 50 * 1024 * 1024
)

// allowedMimeTypes maps each accepted content type to the stored file
// category.
var allowedMimeTypes = map[string]models.FileType{
	"image/jpeg":      models.FileTypeImage,
	"image/png":       models.FileTypeImage,
	"image/webp":      models.FileTypeImage,
	"video/mp4":       models.FileTypeVideo,
	"video/webm":      models.FileTypeVideo,
	"video/quicktime": models.FileTypeVideo,
}

// ObjectStore is the slice of object storage the media pipeline needs.
type ObjectStore interface {
	UploadMedia(ctx context.Context, reader io.Reader, size int64, contentType, uploader, incidentID, fileName string) (string, error)
	GetFileURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// MediaUpload is one candidate file in an attach batch.
type MediaUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type MediaService struct {
	incidents repository.IncidentRepository
	media     repository.MediaRepository
	store     ObjectStore
	logger    *zap.Logger
}

func NewMediaService(incidents repository.IncidentRepository, media repository.MediaRepository, store ObjectStore, logger *zap.Logger) *MediaService {
	return &MediaService{incidents: incidents, media: media, store: store, logger: logger}
}

// Attach links evidence files to an existing incident. Files are
// processed one at a time in order; a failed file is reported in its
// own result and never aborts the siblings, and nothing here touches
// the incident row itself.
func (s *MediaService) Attach(ctx context.Context, uploadedBy *uuid.UUID, incidentID uuid.UUID, uploads []MediaUpload) ([]models.AttachResult, error) {
	if len(uploads) == 0 {
		return nil, errs.Validation("files", "at least one file is required")
	}
	if len(uploads) > MaxFilesPerAttach {
		return nil, errs.Validation("files", fmt.Sprintf("at most %d files per request", MaxFilesPerAttach))
	}

	if _, err := s.incidents.FindByID(ctx, incidentID); err != nil {
		return nil, err
	}

	results := make([]models.AttachResult, 0, len(uploads))
	for _, upload := range uploads {
		results = append(results, s.attachOne(ctx, uploadedBy, incidentID, upload))
	}
	return results, nil
}

func (s *MediaService) attachOne(ctx context.Context, uploadedBy *uuid.UUID, incidentID uuid.UUID, upload MediaUpload) models.AttachResult {
	result := models.AttachResult{FileName: upload.FileName}

	fileType, ok := allowedMimeTypes[normalizeMime(upload.ContentType)]
	if !ok {
		result.Error = fmt.Sprintf("unsupported file type %q", upload.ContentType)
		return result
	}
	if upload.Size > MaxFileSize {
		result.Error = fmt.Sprintf("file exceeds %d MB limit", MaxFileSize/(1024*1024))
		return result
	}

	uploader := ""
	if uploadedBy != nil {
		uploader = uploadedBy.String()
	}

	objectPath, err := s.store.UploadMedia(ctx, upload.Reader, upload.Size, upload.ContentType, uploader, incidentID.String(), upload.FileName)
	if err != nil {
		s.logger.Warn("media upload failed",
			zap.String("incident_id", incidentID.String()),
			zap.String("file", upload.FileName),
			zap.Error(err))
		result.Error = (&errs.MediaUploadError{FileName: upload.FileName, Err: err}).Error()
		return result
	}

	item := &models.MediaItem{
		IncidentID: incidentID,
		FilePath:   objectPath,
		FileType:   fileType,
		MimeType:   normalizeMime(upload.ContentType),
		FileSize:   upload.Size,
		UploadedBy: uploadedBy,
	}
	if err := s.media.Create(ctx, item); err != nil {
		// The object is already stored; remove it so a retried attach
		// does not leave orphans behind.
		if derr := s.store.DeleteFile(ctx, objectPath); derr != nil {
			s.logger.Warn("failed to clean up orphaned object",
				zap.String("object", objectPath),
				zap.Error(derr))
		}
		result.Error = (&errs.MediaUploadError{FileName: upload.FileName, Err: err}).Error()
		return result
	}

	url, err := s.store.GetFileURL(ctx, objectPath)
	if err != nil {
		s.logger.Debug("presigned URL generation failed", zap.Error(err))
		url = ""
	}
	resp := models.ToMediaItemResponse(item, url)
	result.Media = &resp
	return result
}

// ListByIncident returns the incident's media with fresh download URLs.
func (s *MediaService) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]models.MediaItemResponse, error) {
	items, err := s.media.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	responses := make([]models.MediaItemResponse, 0, len(items))
	for i := range items {
		url, err := s.store.GetFileURL(ctx, items[i].FilePath)
		if err != nil {
			url = ""
		}
		responses = append(responses, models.ToMediaItemResponse(&items[i], url))
	}
	return responses, nil
}

func normalizeMime(contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
