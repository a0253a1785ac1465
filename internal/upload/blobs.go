package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/model"
)

// BlobStore keeps uploaded files on disk under generated names.
type BlobStore struct {
	dir string
}

// NewBlobStore creates dir if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

// Dir returns the directory blobs are written to.
func (b *BlobStore) Dir() string { return b.dir }

// Save copies r into a new file named doc_<uuid>.<ext>. More than maxSize
// bytes is rejected and nothing is kept.
func (b *BlobStore) Save(r io.Reader, originalFilename string, maxSize int64) (model.StoredFile, error) {
	ext := extension(originalFilename)
	stored := "doc_" + uuid.New().String()
	if ext != "" {
		stored += "." + ext
	}
	path := filepath.Join(b.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 -- name is generated
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("failed to create blob: %w", err)
	}

	src := r
	if maxSize > 0 {
		src = io.LimitReader(r, maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return model.StoredFile{}, fmt.Errorf("failed to write blob: %w", err)
	}
	if maxSize > 0 && n > maxSize {
		_ = os.Remove(path)
		return model.StoredFile{}, internalErrors.NewValidationError("file", fmt.Sprintf("file exceeds the maximum size of %d bytes", maxSize))
	}

	return model.StoredFile{
		OriginalFilename: originalFilename,
		StoredFilename:   stored,
		Path:             path,
		Size:             n,
		Format:           model.FormatFromFilename(originalFilename),
	}, nil
}

// Open opens a stored blob for reading.
func (b *BlobStore) Open(path string) (*os.File, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the repository
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Remove deletes a stored blob. A missing file is not an error.
func (b *BlobStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob %s: %w", path, err)
	}
	return nil
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
