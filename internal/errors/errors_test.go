package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDocumentNotFoundError(t *testing.T) {
	docID := "doc123"
	err := NewDocumentNotFoundError(docID)

	expectedMsg := "document with ID 'doc123' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	err2 := NewDocumentNotFoundError(docID, "user-7")
	expectedMsg2 := "document with ID 'doc123' not found for user 'user-7'"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	if !errors.Is(err, ErrDocumentNotFound) {
		t.Error("Expected error to match ErrDocumentNotFound sentinel")
	}
	if !errors.Is(err2, ErrDocumentNotFound) {
		t.Error("Expected error with owner to match ErrDocumentNotFound sentinel")
	}
	if errors.Is(err, ErrVersionNotFound) {
		t.Error("Error should not match ErrVersionNotFound")
	}
}

func TestVersionNotFoundError(t *testing.T) {
	err := NewVersionNotFoundError("doc-1", 3)

	expectedMsg := "version 3 of document 'doc-1' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrVersionNotFound) {
		t.Error("Expected error to match ErrVersionNotFound sentinel")
	}
}

func TestJobNotFoundError(t *testing.T) {
	jobID := "job-456"
	err := NewJobNotFoundError(jobID)

	expectedMsg := "job with ID 'job-456' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrJobNotFound) {
		t.Error("Expected error to match ErrJobNotFound sentinel")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", "cannot be empty")

	expectedMsg := "validation error for field 'title': cannot be empty"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	err2 := NewValidationError("", "cannot be empty")
	expectedMsg2 := "validation error: cannot be empty"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("Expected error to match ErrInvalidInput sentinel")
	}
	if !errors.Is(err2, ErrInvalidInput) {
		t.Error("Expected error without field to match ErrInvalidInput sentinel")
	}
}

func TestForbiddenError(t *testing.T) {
	err := NewForbiddenError("doc-9", "mallory")

	expectedMsg := "user 'mallory' may not access document 'doc-9'"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("Expected error to match ErrForbidden sentinel")
	}
}

func TestVersionConflictError(t *testing.T) {
	err := NewVersionConflictError("doc-3", 4, 5)

	expectedMsg := "document 'doc-3' is at version 5, cannot store version 4"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrVersionConflict) {
		t.Error("Expected error to match ErrVersionConflict sentinel")
	}
}

func TestErrorChaining(t *testing.T) {
	originalErr := NewDocumentNotFoundError("doc-1", "alice")
	wrappedErr := fmt.Errorf("loading candidates: %w", originalErr)

	if !errors.Is(wrappedErr, ErrDocumentNotFound) {
		t.Error("Expected wrapped error to still match ErrDocumentNotFound sentinel")
	}

	var docErr *DocumentNotFoundError
	if !errors.As(wrappedErr, &docErr) {
		t.Fatal("Expected to be able to unwrap to DocumentNotFoundError")
	}
	if docErr.OwnerID != "alice" {
		t.Errorf("Expected owner 'alice', got '%s'", docErr.OwnerID)
	}
}
