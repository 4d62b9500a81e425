package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("conflicting update")
	ErrPersistence = errors.New("persistence failure")
	ErrForbidden   = errors.New("insufficient role")
)

// Location acquisition errors. Each maps to a distinct user-facing
// message; none of them are fatal to the caller.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrUnsupported         = errors.New("geolocation not supported")
)

// ValidationError is rejected before any network or repository call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MediaUploadError carries the failure of a single file. It never
// aborts sibling uploads or the parent incident.
type MediaUploadError struct {
	FileName string
	Err      error
}

func (e *MediaUploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
}

func (e *MediaUploadError) Unwrap() error { return e.Err }
