package services

import (
	"context"

	"github.com/gcbaptista/go-document-repository/model"
)

// TextExtractor produces normalized comparable text from a stored file.
// Extract never fails: unsupported formats and extraction errors yield "".
type TextExtractor interface {
	Extract(path string, format model.Format) string
	Supports(format model.Format) bool
	Name() string
}

// Commit carries everything needed to persist the outcome of one upload.
// For a new version, Title, Description and Visibility are ignored and the
// target document keeps its own.
type Commit struct {
	OwnerID       string
	Title         string
	Description   string
	Visibility    model.Visibility
	File          model.StoredFile
	ExtractedText string
	Decision      model.Decision
}

// DocumentReader defines read access to documents and their versions
type DocumentReader interface {
	GetDocument(ctx context.Context, documentID string) (model.Document, error)
	ListDocuments(ctx context.Context, ownerID string) ([]model.Document, error)
	ListVersions(ctx context.Context, documentID string) ([]model.Version, error)
	GetVersion(ctx context.Context, documentID string, versionNumber int) (model.Version, error)
}

// DocumentRepository is the persistence port of the upload workflow.
//
// ListCandidates returns the owner's documents that have extracted text,
// newest first, each with its latest version number.
// CommitDecision applies a decision atomically: either a new document with
// version 1, or a new version row plus the overwrite of the target document's
// extracted text and file fields.
type DocumentRepository interface {
	DocumentReader
	ListCandidates(ctx context.Context, ownerID string) ([]model.Candidate, error)
	CommitDecision(ctx context.Context, commit Commit) (model.Document, model.Version, error)
	UpdateExtractedText(ctx context.Context, documentID, text string) error
	UpdateVisibility(ctx context.Context, documentID string, visibility model.Visibility) error
	// DeleteDocument removes the document and its versions, returning the removed versions.
	DeleteDocument(ctx context.Context, documentID string) ([]model.Version, error)
	Close() error
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(ownerID string, status *model.JobStatus) []*model.Job
}
