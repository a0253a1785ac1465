package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrVersionNotFound is returned when a document version is not found
	ErrVersionNotFound = errors.New("version not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when a user accesses a document they do not own
	ErrForbidden = errors.New("forbidden")

	// ErrVersionConflict is returned when a version number is already taken
	ErrVersionConflict = errors.New("version conflict")
)

// DocumentNotFoundError represents a document not found error with context
type DocumentNotFoundError struct {
	DocumentID string
	OwnerID    string
}

func (e *DocumentNotFoundError) Error() string {
	if e.OwnerID != "" {
		return fmt.Sprintf("document with ID '%s' not found for user '%s'", e.DocumentID, e.OwnerID)
	}
	return fmt.Sprintf("document with ID '%s' not found", e.DocumentID)
}

func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}

// NewDocumentNotFoundError creates a new DocumentNotFoundError
func NewDocumentNotFoundError(documentID string, ownerID ...string) *DocumentNotFoundError {
	err := &DocumentNotFoundError{DocumentID: documentID}
	if len(ownerID) > 0 {
		err.OwnerID = ownerID[0]
	}
	return err
}

// VersionNotFoundError represents a missing version of a document
type VersionNotFoundError struct {
	DocumentID    string
	VersionNumber int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %d of document '%s' not found", e.VersionNumber, e.DocumentID)
}

func (e *VersionNotFoundError) Is(target error) bool {
	return target == ErrVersionNotFound
}

// NewVersionNotFoundError creates a new VersionNotFoundError
func NewVersionNotFoundError(documentID string, versionNumber int) *VersionNotFoundError {
	return &VersionNotFoundError{DocumentID: documentID, VersionNumber: versionNumber}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ForbiddenError is returned when a user acts on a document owned by someone else
type ForbiddenError struct {
	DocumentID string
	UserID     string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user '%s' may not access document '%s'", e.UserID, e.DocumentID)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// NewForbiddenError creates a new ForbiddenError
func NewForbiddenError(documentID, userID string) *ForbiddenError {
	return &ForbiddenError{DocumentID: documentID, UserID: userID}
}

// VersionConflictError is returned when a commit expects a version number that
// no longer follows the document's latest version
type VersionConflictError struct {
	DocumentID string
	Expected   int
	Latest     int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("document '%s' is at version %d, cannot store version %d", e.DocumentID, e.Latest, e.Expected)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// NewVersionConflictError creates a new VersionConflictError
func NewVersionConflictError(documentID string, expected, latest int) *VersionConflictError {
	return &VersionConflictError{DocumentID: documentID, Expected: expected, Latest: latest}
}
