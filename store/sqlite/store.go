// Package sqlite implements the document repository on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
	"github.com/gcbaptista/go-document-repository/store/sqlite/migrations"
)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "docrepo.db"

var _ services.DocumentRepository = (*Store)(nil)

// Store is a SQLite-backed services.DocumentRepository.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore opens (creating if needed) the database in dataDir and applies
// pending migrations.
func NewStore(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, logger: logger, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("sqlite store opened", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs every embedded *.up.sql file newer than the recorded schema version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
		s.logger.Debug("applied migration", "name", name)
	}

	return nil
}

const documentColumns = `
	d.id, d.owner_id, d.title, d.description, d.visibility, d.original_filename,
	d.stored_filename, d.file_path, d.file_size, d.format, d.extracted_text,
	(SELECT COALESCE(MAX(v.version_number), 0) FROM versions v WHERE v.document_id = d.id),
	d.created_at, d.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var doc model.Document
	var visibility, format string
	var createdAt, updatedAt int64
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Description, &visibility,
		&doc.OriginalFilename, &doc.StoredFilename, &doc.FilePath, &doc.FileSize, &format,
		&doc.ExtractedText, &doc.LatestVersion, &createdAt, &updatedAt)
	if err != nil {
		return model.Document{}, err
	}
	doc.Visibility = model.Visibility(visibility)
	doc.Format = model.Format(format)
	doc.CreatedAt = fromUnixNano(createdAt)
	doc.UpdatedAt = fromUnixNano(updatedAt)
	return doc, nil
}

const versionColumns = `id, document_id, version_number, stored_filename, file_path, file_size, uploaded_by, created_at`

func scanVersion(row rowScanner) (model.Version, error) {
	var v model.Version
	var createdAt int64
	if err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StoredFilename,
		&v.FilePath, &v.FileSize, &v.UploadedBy, &createdAt); err != nil {
		return model.Version{}, err
	}
	v.CreatedAt = fromUnixNano(createdAt)
	return v, nil
}

// ListCandidates returns the owner's documents with extracted text, newest first.
func (s *Store) ListCandidates(ctx context.Context, ownerID string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.extracted_text,
			(SELECT COALESCE(MAX(v.version_number), 0) FROM versions v WHERE v.document_id = d.id)
		FROM documents d
		WHERE d.owner_id = ? AND d.extracted_text != ''
		ORDER BY d.created_at DESC, d.rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.Candidate, 0)
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.DocumentID, &c.Title, &c.ExtractedText, &c.LatestVersion); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// CommitDecision persists an upload decision in a single transaction.
func (s *Store) CommitDecision(ctx context.Context, c services.Commit) (model.Document, model.Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, model.Version{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.now().UTC()
	version := model.Version{
		ID:             uuid.New().String(),
		StoredFilename: c.File.StoredFilename,
		FilePath:       c.File.Path,
		FileSize:       c.File.Size,
		UploadedBy:     c.OwnerID,
		CreatedAt:      now,
	}

	if c.Decision.IsNewVersion() {
		version.DocumentID = c.Decision.TargetDocumentID
		version.VersionNumber = c.Decision.NextVersion
		if err := s.appendVersion(ctx, tx, c, version, now); err != nil {
			return model.Document{}, model.Version{}, err
		}
	} else {
		version.DocumentID = uuid.New().String()
		version.VersionNumber = 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, owner_id, title, description, visibility, original_filename,
				stored_filename, file_path, file_size, format, extracted_text, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			version.DocumentID, c.OwnerID, c.Title, c.Description, string(c.Visibility), c.File.OriginalFilename,
			c.File.StoredFilename, c.File.Path, c.File.Size, string(c.File.Format), c.ExtractedText,
			now.UnixNano(), now.UnixNano())
		if err != nil {
			return model.Document{}, model.Version{}, fmt.Errorf("inserting document: %w", err)
		}
	}

	if err := insertVersion(ctx, tx, version); err != nil {
		return model.Document{}, model.Version{}, err
	}

	doc, err := getDocument(ctx, tx, version.DocumentID)
	if err != nil {
		return model.Document{}, model.Version{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Document{}, model.Version{}, fmt.Errorf("committing upload: %w", err)
	}
	return doc, version, nil
}

// appendVersion checks ownership and numbering of the target document and
// overwrites its current file and extracted text.
func (s *Store) appendVersion(ctx context.Context, tx *sql.Tx, c services.Commit, version model.Version, now time.Time) error {
	var owner string
	var latest int
	err := tx.QueryRowContext(ctx, `
		SELECT d.owner_id, (SELECT COALESCE(MAX(v.version_number), 0) FROM versions v WHERE v.document_id = d.id)
		FROM documents d WHERE d.id = ?`, version.DocumentID).Scan(&owner, &latest)
	if errors.Is(err, sql.ErrNoRows) {
		return internalErrors.NewDocumentNotFoundError(version.DocumentID)
	}
	if err != nil {
		return fmt.Errorf("loading target document: %w", err)
	}
	if owner != c.OwnerID {
		return internalErrors.NewForbiddenError(version.DocumentID, c.OwnerID)
	}
	if version.VersionNumber != latest+1 {
		return internalErrors.NewVersionConflictError(version.DocumentID, version.VersionNumber, latest)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET extracted_text = ?, stored_filename = ?, original_filename = ?,
			file_path = ?, file_size = ?, format = ?, updated_at = ?
		WHERE id = ?`,
		c.ExtractedText, c.File.StoredFilename, c.File.OriginalFilename,
		c.File.Path, c.File.Size, string(c.File.Format), now.UnixNano(), version.DocumentID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, q querier, v model.Version) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.DocumentID, v.VersionNumber, v.StoredFilename, v.FilePath, v.FileSize, v.UploadedBy, v.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting version %d of document %s: %w", v.VersionNumber, v.DocumentID, err)
	}
	return nil
}

// GetDocument returns one document by ID.
func (s *Store) GetDocument(ctx context.Context, documentID string) (model.Document, error) {
	return getDocument(ctx, s.db, documentID)
}

func getDocument(ctx context.Context, q querier, documentID string) (model.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`, documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, internalErrors.NewDocumentNotFoundError(documentID)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("loading document %s: %w", documentID, err)
	}
	return doc, nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		WHERE d.owner_id = ?
		ORDER BY d.created_at DESC, d.rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListVersions returns a document's versions, highest number first.
func (s *Store) ListVersions(ctx context.Context, documentID string) ([]model.Version, error) {
	if _, err := getDocument(ctx, s.db, documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = ?
		ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	versions := make([]model.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetVersion returns one numbered version of a document.
func (s *Store) GetVersion(ctx context.Context, documentID string, versionNumber int) (model.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = ? AND version_number = ?`, documentID, versionNumber)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Version{}, internalErrors.NewVersionNotFoundError(documentID, versionNumber)
	}
	if err != nil {
		return model.Version{}, fmt.Errorf("loading version: %w", err)
	}
	return v, nil
}

// UpdateExtractedText overwrites the stored extracted text of a document.
func (s *Store) UpdateExtractedText(ctx context.Context, documentID, text string) error {
	return s.updateDocument(ctx, documentID, `extracted_text = ?`, text)
}

// UpdateVisibility changes who may read a document.
func (s *Store) UpdateVisibility(ctx context.Context, documentID string, visibility model.Visibility) error {
	return s.updateDocument(ctx, documentID, `visibility = ?`, string(visibility))
}

func (s *Store) updateDocument(ctx context.Context, documentID, assignment string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET `+assignment+`, updated_at = ? WHERE id = ?`,
		value, s.now().UTC().UnixNano(), documentID)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", documentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return internalErrors.NewDocumentNotFoundError(documentID)
	}
	return nil
}

// DeleteDocument removes a document; its versions go with it through the
// foreign key cascade. The removed versions are returned so their files can be deleted.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) ([]model.Version, error) {
	versions, err := s.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, internalErrors.NewDocumentNotFoundError(documentID)
	}
	return versions, nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
