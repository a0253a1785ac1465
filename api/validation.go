// Package api provides validation utilities for API request handling.
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-document-repository/model"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDocumentID validates a document ID
func ValidateDocumentID(documentID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if documentID == "" {
		result.AddError("documentId", "Document ID is required")
		return result
	}

	if strings.TrimSpace(documentID) != documentID {
		result.AddError("documentId", "Document ID cannot have leading or trailing whitespace")
		return result
	}

	return result
}

// ValidateVersionNumber parses a version path parameter. Versions start at 1.
func ValidateVersionNumber(raw string) (int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	n, err := strconv.Atoi(raw)
	if err != nil {
		result.AddError("version", "Version must be a whole number")
		return 0, result
	}
	if n < 1 {
		result.AddError("version", "Version must be greater than 0")
		return 0, result
	}
	return n, result
}

// ValidateVisibility validates a visibility value. Empty means Private when allowEmpty is set.
func ValidateVisibility(raw string, allowEmpty bool) (model.Visibility, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	if raw == "" && allowEmpty {
		return model.VisibilityPrivate, result
	}
	v := model.Visibility(raw)
	if !v.Valid() {
		result.AddError("visibility", "Visibility must be 'Public' or 'Private'")
	}
	return v, result
}

// ValidateJobStatus parses an optional status filter.
func ValidateJobStatus(raw string) (*model.JobStatus, *ValidationResult) {
	result := &ValidationResult{Valid: true}
	if raw == "" {
		return nil, result
	}

	status := model.JobStatus(raw)
	switch status {
	case model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
		model.JobStatusFailed, model.JobStatusCancelled:
		return &status, result
	}
	result.AddError("status", "Unknown job status '"+raw+"'")
	return nil, result
}

// SimilarityRequest is the body of POST /similarity.
type SimilarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

// ValidateSimilarityRequest checks that both texts are present.
func ValidateSimilarityRequest(req *SimilarityRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(req.TextA) == "" {
		result.AddError("text_a", "text_a is required")
	}
	if strings.TrimSpace(req.TextB) == "" {
		result.AddError("text_b", "text_b is required")
	}
	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
