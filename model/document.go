package model

import (
	"io"
	"time"
)

// Visibility controls who may read a document.
type Visibility string

const (
	VisibilityPublic  Visibility = "Public"
	VisibilityPrivate Visibility = "Private"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Document is a user-owned entry in the repository.
// ExtractedText always holds the normalized text of the latest version and is
// overwritten whenever a new version is accepted.
type Document struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Visibility       Visibility `json:"visibility"`
	OriginalFilename string     `json:"original_filename"`
	StoredFilename   string     `json:"stored_filename"`
	FilePath         string     `json:"-"`
	FileSize         int64      `json:"file_size"`
	Format           Format     `json:"format,omitempty"`
	ExtractedText    string     `json:"-"`
	LatestVersion    int        `json:"latest_version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CanRead reports whether the given user may read the document.
func (d *Document) CanRead(userID string) bool {
	return d.Visibility == VisibilityPublic || (userID != "" && d.OwnerID == userID)
}

// Version is an immutable stored revision of a document's file.
// Version numbers are monotonic per document and start at 1.
type Version struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	VersionNumber  int       `json:"version_number"`
	StoredFilename string    `json:"stored_filename"`
	FilePath       string    `json:"-"`
	FileSize       int64     `json:"file_size"`
	UploadedBy     string    `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Candidate is an existing document considered as a match for an upload.
type Candidate struct {
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	ExtractedText string `json:"-"`
	LatestVersion int    `json:"latest_version"`
}

// UploadRequest carries everything the upload workflow needs for one file.
type UploadRequest struct {
	OwnerID          string
	Title            string
	Description      string
	Visibility       Visibility
	OriginalFilename string
	Size             int64
	Content          io.Reader
}

// StoredFile describes an uploaded file after it has been written to blob storage.
type StoredFile struct {
	OriginalFilename string
	StoredFilename   string
	Path             string
	Size             int64
	Format           Format
}

// UploadResult is returned once an upload has been committed.
type UploadResult struct {
	Document Document `json:"document"`
	Version  Version  `json:"version"`
	Decision Decision `json:"decision"`
	Message  string   `json:"message"`
}
