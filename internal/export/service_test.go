package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	testutil "github.com/gcbaptista/go-document-repository/internal/testing"
	"github.com/gcbaptista/go-document-repository/store"
)

func TestExportDocumentsXLSX(t *testing.T) {
	ctx := context.Background()
	repo := store.NewDocumentStore()

	report := testutil.CommitTestDocument(t, repo, "alice", "Q3 Report", testutil.ReportText)
	_, _, err := repo.CommitDecision(ctx, testutil.NewVersionCommit("alice", report.ID, 2, testutil.ReportRevisedText))
	require.NoError(t, err)
	testutil.CommitTestDocument(t, repo, "alice", "Cake", testutil.RecipeText)
	testutil.CommitTestDocument(t, repo, "bob", "Not mine", testutil.RecipeText)

	data, err := NewService(repo, nil).ExportDocumentsXLSX(ctx, "alice")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	// Newest first
	assert.Equal(t, "Cake", rows[1][0])
	assert.Equal(t, "1", rows[1][6])
	assert.Equal(t, "Q3 Report", rows[2][0])
	assert.Equal(t, "Private", rows[2][2])
	assert.Equal(t, "txt", rows[2][4])
	assert.Equal(t, "2", rows[2][6])
}

func TestExportDocumentsXLSX_Empty(t *testing.T) {
	data, err := NewService(store.NewDocumentStore(), nil).ExportDocumentsXLSX(context.Background(), "nobody")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
