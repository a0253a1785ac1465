package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/internal/persistence"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

// SnapshotFile is the default snapshot name inside the data directory.
const SnapshotFile = "documents.gob"

var _ services.DocumentRepository = (*DocumentStore)(nil)

// DocumentStore is an in-memory services.DocumentRepository. When opened with
// a snapshot path, every mutation is written back as a gob snapshot.
type DocumentStore struct {
	mu       sync.RWMutex
	docs     map[string]model.Document
	versions map[string][]model.Version // ascending version numbers
	sequence map[string]uint64          // insertion order, breaks created_at ties
	nextSeq  uint64

	saveMu       sync.Mutex
	snapshotPath string
	logger       *slog.Logger
	now          func() time.Time
}

// gobDocumentStoreData is a helper struct for Gob encoding/decoding DocumentStore data.
// It excludes the mutexes and runtime configuration.
type gobDocumentStoreData struct {
	Docs     map[string]model.Document
	Versions map[string][]model.Version
	Sequence map[string]uint64
	NextSeq  uint64
}

// NewDocumentStore creates an empty store that is never persisted.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:     make(map[string]model.Document),
		versions: make(map[string][]model.Version),
		sequence: make(map[string]uint64),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// OpenDocumentStore loads the snapshot at path if it exists and persists
// every later mutation to it.
func OpenDocumentStore(path string, logger *slog.Logger) (*DocumentStore, error) {
	s := NewDocumentStore()
	if logger != nil {
		s.logger = logger
	}
	s.snapshotPath = path

	if err := persistence.LoadGob(path, s); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading document snapshot: %w", err)
		}
		s.logger.Info("no document snapshot found, starting empty", "path", path)
	} else {
		s.logger.Info("document snapshot loaded", "path", path, "documents", len(s.docs))
	}
	return s, nil
}

// GobEncode implements the gob.GobEncoder interface for DocumentStore.
func (s *DocumentStore) GobEncode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := gobDocumentStoreData{
		Docs:     s.docs,
		Versions: s.versions,
		Sequence: s.sequence,
		NextSeq:  s.nextSeq,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to gob encode document store data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for DocumentStore.
func (s *DocumentStore) GobDecode(data []byte) error {
	var decoded gobDocumentStoreData
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode document store data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = decoded.Docs
	s.versions = decoded.Versions
	s.sequence = decoded.Sequence
	s.nextSeq = decoded.NextSeq

	// Ensure maps are initialized if they were nil after decoding
	if s.docs == nil {
		s.docs = make(map[string]model.Document)
	}
	if s.versions == nil {
		s.versions = make(map[string][]model.Version)
	}
	if s.sequence == nil {
		s.sequence = make(map[string]uint64)
	}
	return nil
}

// persist writes a snapshot after a mutation. Must be called without s.mu held.
func (s *DocumentStore) persist() error {
	if s.snapshotPath == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := persistence.SaveGob(s.snapshotPath, s); err != nil {
		return fmt.Errorf("saving document snapshot: %w", err)
	}
	return nil
}

// Close writes a final snapshot.
func (s *DocumentStore) Close() error {
	return s.persist()
}

// withLatest returns doc with LatestVersion filled from the version list.
func (s *DocumentStore) withLatest(doc model.Document) model.Document {
	versions := s.versions[doc.ID]
	doc.LatestVersion = 0
	if n := len(versions); n > 0 {
		doc.LatestVersion = versions[n-1].VersionNumber
	}
	return doc
}

// ownedNewestFirst returns the owner's documents sorted newest first.
func (s *DocumentStore) ownedNewestFirst(ownerID string) []model.Document {
	docs := make([]model.Document, 0)
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, s.withLatest(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return s.sequence[docs[i].ID] > s.sequence[docs[j].ID]
	})
	return docs
}

// ListCandidates returns the owner's documents with extracted text, newest first.
func (s *DocumentStore) ListCandidates(_ context.Context, ownerID string) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]model.Candidate, 0)
	for _, doc := range s.ownedNewestFirst(ownerID) {
		if doc.ExtractedText == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{
			DocumentID:    doc.ID,
			Title:         doc.Title,
			ExtractedText: doc.ExtractedText,
			LatestVersion: doc.LatestVersion,
		})
	}
	return candidates, nil
}

// CommitDecision applies an upload decision. All checks run before any
// state changes, so a rejected commit leaves the store untouched.
func (s *DocumentStore) CommitDecision(_ context.Context, c services.Commit) (model.Document, model.Version, error) {
	s.mu.Lock()

	now := s.now().UTC()
	version := model.Version{
		ID:             uuid.New().String(),
		StoredFilename: c.File.StoredFilename,
		FilePath:       c.File.Path,
		FileSize:       c.File.Size,
		UploadedBy:     c.OwnerID,
		CreatedAt:      now,
	}

	var doc model.Document
	if c.Decision.IsNewVersion() {
		target, ok := s.docs[c.Decision.TargetDocumentID]
		if !ok {
			s.mu.Unlock()
			return model.Document{}, model.Version{}, internalErrors.NewDocumentNotFoundError(c.Decision.TargetDocumentID)
		}
		if target.OwnerID != c.OwnerID {
			s.mu.Unlock()
			return model.Document{}, model.Version{}, internalErrors.NewForbiddenError(target.ID, c.OwnerID)
		}
		latest := s.withLatest(target).LatestVersion
		if c.Decision.NextVersion != latest+1 {
			s.mu.Unlock()
			return model.Document{}, model.Version{}, internalErrors.NewVersionConflictError(target.ID, c.Decision.NextVersion, latest)
		}

		target.ExtractedText = c.ExtractedText
		target.StoredFilename = c.File.StoredFilename
		target.OriginalFilename = c.File.OriginalFilename
		target.FilePath = c.File.Path
		target.FileSize = c.File.Size
		target.Format = c.File.Format
		target.UpdatedAt = now
		doc = target

		version.DocumentID = target.ID
		version.VersionNumber = c.Decision.NextVersion
	} else {
		doc = model.Document{
			ID:               uuid.New().String(),
			OwnerID:          c.OwnerID,
			Title:            c.Title,
			Description:      c.Description,
			Visibility:       c.Visibility,
			OriginalFilename: c.File.OriginalFilename,
			StoredFilename:   c.File.StoredFilename,
			FilePath:         c.File.Path,
			FileSize:         c.File.Size,
			Format:           c.File.Format,
			ExtractedText:    c.ExtractedText,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		s.nextSeq++
		s.sequence[doc.ID] = s.nextSeq

		version.DocumentID = doc.ID
		version.VersionNumber = 1
	}

	s.docs[doc.ID] = doc
	s.versions[doc.ID] = append(s.versions[doc.ID], version)
	doc = s.withLatest(doc)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return model.Document{}, model.Version{}, err
	}
	return doc, version, nil
}

// GetDocument returns one document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, documentID string) (model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return model.Document{}, internalErrors.NewDocumentNotFoundError(documentID)
	}
	return s.withLatest(doc), nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedNewestFirst(ownerID), nil
}

// ListVersions returns a document's versions, highest number first.
func (s *DocumentStore) ListVersions(_ context.Context, documentID string) ([]model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.docs[documentID]; !ok {
		return nil, internalErrors.NewDocumentNotFoundError(documentID)
	}
	stored := s.versions[documentID]
	versions := make([]model.Version, len(stored))
	for i, v := range stored {
		versions[len(stored)-1-i] = v
	}
	return versions, nil
}

// GetVersion returns one numbered version of a document.
func (s *DocumentStore) GetVersion(_ context.Context, documentID string, versionNumber int) (model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[documentID] {
		if v.VersionNumber == versionNumber {
			return v, nil
		}
	}
	return model.Version{}, internalErrors.NewVersionNotFoundError(documentID, versionNumber)
}

// UpdateExtractedText overwrites the stored extracted text of a document.
func (s *DocumentStore) UpdateExtractedText(_ context.Context, documentID, text string) error {
	return s.update(documentID, func(doc *model.Document) { doc.ExtractedText = text })
}

// UpdateVisibility changes who may read a document.
func (s *DocumentStore) UpdateVisibility(_ context.Context, documentID string, visibility model.Visibility) error {
	return s.update(documentID, func(doc *model.Document) { doc.Visibility = visibility })
}

func (s *DocumentStore) update(documentID string, apply func(doc *model.Document)) error {
	s.mu.Lock()
	doc, ok := s.docs[documentID]
	if !ok {
		s.mu.Unlock()
		return internalErrors.NewDocumentNotFoundError(documentID)
	}
	apply(&doc)
	doc.UpdatedAt = s.now().UTC()
	s.docs[documentID] = doc
	s.mu.Unlock()

	return s.persist()
}

// DeleteDocument removes a document with all its versions and returns the removed versions.
func (s *DocumentStore) DeleteDocument(_ context.Context, documentID string) ([]model.Version, error) {
	s.mu.Lock()
	if _, ok := s.docs[documentID]; !ok {
		s.mu.Unlock()
		return nil, internalErrors.NewDocumentNotFoundError(documentID)
	}
	removed := s.versions[documentID]
	delete(s.docs, documentID)
	delete(s.versions, documentID)
	delete(s.sequence, documentID)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	return removed, nil
}
