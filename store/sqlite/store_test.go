package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/gcbaptista/go-document-repository/internal/testing"
	"github.com/gcbaptista/go-document-repository/services"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestStore_RepositoryContract(t *testing.T) {
	testutil.RunRepositoryContract(t, func(t *testing.T) services.DocumentRepository {
		return setupTestStore(t)
	})
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir, nil)
	require.NoError(t, err)
	doc := testutil.CommitTestDocument(t, first, "alice", "Report", testutil.ReportText)
	require.NoError(t, first.Close())

	second, err := NewStore(dir, nil)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	stored, err := second.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.ReportText, stored.ExtractedText)
}

func TestStore_VersionNumbersAreUnique(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc := testutil.CommitTestDocument(t, store, "alice", "Report", testutil.ReportText)

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO versions (id, document_id, version_number, stored_filename, file_path, file_size, uploaded_by, created_at)
		VALUES ('dup', ?, 1, 'x', 'x', 0, 'alice', 0)`, doc.ID)
	assert.Error(t, err)
}

func TestStore_DeleteCascadesVersions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc := testutil.CommitTestDocument(t, store, "alice", "Report", testutil.ReportText)

	_, err := store.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)

	var remaining int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM versions WHERE document_id = ?", doc.ID).Scan(&remaining))
	assert.Zero(t, remaining)
}
