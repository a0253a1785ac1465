// Package upload runs the upload workflow: validate, store the file, extract
// its text, detect whether it is a new version and commit the outcome.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gcbaptista/go-document-repository/config"
	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/internal/versioning"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

// EventTracker receives one event per committed upload.
type EventTracker interface {
	TrackUploadEvent(event model.UploadEvent) error
}

// ProgressFunc reports progress of a long-running operation.
type ProgressFunc func(current, total int, message string)

// Dependencies groups what a Service needs. Analytics and Logger are optional.
type Dependencies struct {
	Repository services.DocumentRepository
	Extractor  services.TextExtractor
	Engine     *versioning.Engine
	Blobs      *BlobStore
	Analytics  EventTracker
	Config     config.UploadConfig
	Logger     *slog.Logger
}

// Service implements the upload workflow and access-checked document operations.
type Service struct {
	repo      services.DocumentRepository
	extractor services.TextExtractor
	engine    *versioning.Engine
	blobs     *BlobStore
	analytics EventTracker
	cfg       config.UploadConfig
	logger    *slog.Logger
	locks     keyedMutex
	now       func() time.Time
}

// NewService validates deps and creates a Service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("document repository cannot be nil")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("text extractor cannot be nil")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("versioning engine cannot be nil")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = append([]string(nil), config.DefaultAllowedExtensions...)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = config.DefaultMaxFileSize
	}
	return &Service{
		repo:      deps.Repository,
		extractor: deps.Extractor,
		engine:    deps.Engine,
		blobs:     deps.Blobs,
		analytics: deps.Analytics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ExtractorName reports which text extractor is in use.
func (s *Service) ExtractorName() string { return s.extractor.Name() }

// Upload stores the file in req and files it as a new document or as the next
// version of the owner's most similar document.
func (s *Service) Upload(ctx context.Context, req model.UploadRequest) (model.UploadResult, error) {
	start := s.now()
	if err := s.validate(&req); err != nil {
		return model.UploadResult{}, err
	}

	file, err := s.blobs.Save(req.Content, req.OriginalFilename, s.cfg.MaxFileSize)
	if err != nil {
		return model.UploadResult{}, err
	}
	text := s.extract(file.Path, file.Format)

	unlock := s.locks.Lock(req.OwnerID)
	candidates, err := s.repo.ListCandidates(ctx, req.OwnerID)
	if err != nil {
		unlock()
		s.discard(file)
		return model.UploadResult{}, fmt.Errorf("listing candidates: %w", err)
	}
	decision := s.engine.Decide(text, req.Title, candidates)
	doc, version, err := s.repo.CommitDecision(ctx, services.Commit{
		OwnerID:       req.OwnerID,
		Title:         req.Title,
		Description:   req.Description,
		Visibility:    req.Visibility,
		File:          file,
		ExtractedText: text,
		Decision:      decision,
	})
	unlock()
	if err != nil {
		s.discard(file)
		return model.UploadResult{}, fmt.Errorf("committing upload: %w", err)
	}

	s.logger.Info("upload committed",
		"owner_id", req.OwnerID,
		"document_id", doc.ID,
		"version", version.VersionNumber,
		"decision", decision.Kind,
		"score", decision.Score,
		"candidates", len(candidates))

	s.track(model.UploadEvent{
		OwnerID:        req.OwnerID,
		DocumentID:     doc.ID,
		Format:         model.Format(extension(file.OriginalFilename)),
		Extracted:      text != "",
		Decision:       decision.Kind,
		Score:          decision.Score,
		CandidateCount: len(candidates),
		ProcessingTime: s.now().Sub(start),
	})

	return model.UploadResult{
		Document: doc,
		Version:  version,
		Decision: decision,
		Message:  decision.Message(),
	}, nil
}

// Preview returns the decision an upload would produce without keeping anything.
func (s *Service) Preview(ctx context.Context, req model.UploadRequest) (model.Decision, error) {
	if err := s.validate(&req); err != nil {
		return model.Decision{}, err
	}
	file, err := s.blobs.Save(req.Content, req.OriginalFilename, s.cfg.MaxFileSize)
	if err != nil {
		return model.Decision{}, err
	}
	defer s.discard(file)

	text := s.extract(file.Path, file.Format)
	candidates, err := s.repo.ListCandidates(ctx, req.OwnerID)
	if err != nil {
		return model.Decision{}, fmt.Errorf("listing candidates: %w", err)
	}
	return s.engine.Decide(text, req.Title, candidates), nil
}

// Similar ranks the owner's other documents against the given document.
func (s *Service) Similar(ctx context.Context, userID, documentID string) ([]model.Match, error) {
	doc, err := s.ownedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListCandidates(ctx, doc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	others := candidates[:0]
	for _, c := range candidates {
		if c.DocumentID != doc.ID {
			others = append(others, c)
		}
	}
	return s.engine.Rank(doc.ExtractedText, doc.Title, others), nil
}

// ListDocuments returns the user's documents, newest first.
func (s *Service) ListDocuments(ctx context.Context, userID string) ([]model.Document, error) {
	return s.repo.ListDocuments(ctx, userID)
}

// GetDocument returns a document the user may read.
func (s *Service) GetDocument(ctx context.Context, userID, documentID string) (model.Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return model.Document{}, err
	}
	if !doc.CanRead(userID) {
		return model.Document{}, internalErrors.NewForbiddenError(documentID, userID)
	}
	return doc, nil
}

// ListVersions returns the versions of a readable document, highest first.
func (s *Service) ListVersions(ctx context.Context, userID, documentID string) ([]model.Version, error) {
	if _, err := s.GetDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, documentID)
}

// OpenVersion opens the file of a readable document's version. Version 0
// means the latest one. The caller closes the file.
func (s *Service) OpenVersion(ctx context.Context, userID, documentID string, versionNumber int) (model.Document, model.Version, *os.File, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return model.Document{}, model.Version{}, nil, err
	}
	if versionNumber == 0 {
		versionNumber = doc.LatestVersion
	}
	version, err := s.repo.GetVersion(ctx, documentID, versionNumber)
	if err != nil {
		return model.Document{}, model.Version{}, nil, err
	}
	f, err := s.blobs.Open(version.FilePath)
	if err != nil {
		return model.Document{}, model.Version{}, nil, err
	}
	return doc, version, f, nil
}

// SetVisibility changes the visibility of one of the user's documents.
func (s *Service) SetVisibility(ctx context.Context, userID, documentID string, visibility model.Visibility) error {
	if !visibility.Valid() {
		return internalErrors.NewValidationError("visibility", "must be Public or Private")
	}
	if _, err := s.ownedDocument(ctx, userID, documentID); err != nil {
		return err
	}
	return s.repo.UpdateVisibility(ctx, documentID, visibility)
}

// Delete removes one of the user's documents with every version and file.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	if _, err := s.ownedDocument(ctx, userID, documentID); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	removed, err := s.repo.DeleteDocument(ctx, documentID)
	unlock()
	if err != nil {
		return err
	}

	for _, v := range removed {
		if err := s.blobs.Remove(v.FilePath); err != nil {
			s.logger.Warn("failed to remove version file", "document_id", documentID, "version", v.VersionNumber, "error", err)
		}
	}
	s.logger.Info("document deleted", "owner_id", userID, "document_id", documentID, "versions", len(removed))
	return nil
}

// Reextract runs extraction again over the latest version of every document
// of the owner and stores the new text when it changed. It returns the
// number of updated documents.
func (s *Service) Reextract(ctx context.Context, ownerID string, progress ProgressFunc) (int, error) {
	docs, err := s.repo.ListDocuments(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}

	updated := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if progress != nil {
			progress(i, len(docs), fmt.Sprintf("Re-extracting %s", doc.Title))
		}
		if doc.Format == "" || !s.extractor.Supports(doc.Format) {
			continue
		}

		changed, err := s.reextractDocument(ctx, ownerID, doc)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}

	if progress != nil {
		progress(len(docs), len(docs), fmt.Sprintf("Updated %d of %d documents", updated, len(docs)))
	}
	return updated, nil
}

func (s *Service) reextractDocument(ctx context.Context, ownerID string, doc model.Document) (bool, error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	// Re-read under the lock so a concurrent upload is not overwritten.
	current, err := s.repo.GetDocument(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDocumentNotFound) {
			return false, nil
		}
		return false, err
	}
	text := s.extract(current.FilePath, current.Format)
	if text == current.ExtractedText {
		return false, nil
	}
	if err := s.repo.UpdateExtractedText(ctx, current.ID, text); err != nil {
		return false, fmt.Errorf("updating extracted text of %s: %w", current.ID, err)
	}
	return true, nil
}

func (s *Service) ownedDocument(ctx context.Context, userID, documentID string) (model.Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return model.Document{}, err
	}
	if doc.OwnerID != userID {
		return model.Document{}, internalErrors.NewForbiddenError(documentID, userID)
	}
	return doc, nil
}

func (s *Service) validate(req *model.UploadRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if req.OwnerID == "" {
		return internalErrors.NewValidationError("owner_id", "an authenticated user is required")
	}
	if req.Title == "" {
		return internalErrors.NewValidationError("title", "title is required")
	}
	if req.OriginalFilename == "" || req.Content == nil {
		return internalErrors.NewValidationError("file", "a file is required")
	}
	if req.Visibility == "" {
		req.Visibility = model.VisibilityPrivate
	}
	if !req.Visibility.Valid() {
		return internalErrors.NewValidationError("visibility", "must be Public or Private")
	}
	if req.Size > s.cfg.MaxFileSize {
		return internalErrors.NewValidationError("file", fmt.Sprintf("file exceeds the maximum size of %d bytes", s.cfg.MaxFileSize))
	}
	if !s.cfg.IsExtensionAllowed(extension(req.OriginalFilename)) {
		return internalErrors.NewValidationError("file", fmt.Sprintf("file type not allowed; accepted: %s", strings.Join(s.cfg.AllowedExtensions, ", ")))
	}
	return nil
}

func (s *Service) extract(path string, format model.Format) string {
	if format == "" || !s.extractor.Supports(format) {
		return ""
	}
	return s.extractor.Extract(path, format)
}

func (s *Service) discard(file model.StoredFile) {
	if err := s.blobs.Remove(file.Path); err != nil {
		s.logger.Warn("failed to remove stored file", "path", file.Path, "error", err)
	}
}

func (s *Service) track(event model.UploadEvent) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.TrackUploadEvent(event); err != nil {
		s.logger.Warn("failed to record upload event", "document_id", event.DocumentID, "error", err)
	}
}
