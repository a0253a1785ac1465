package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

// RepositoryFactory returns a fresh, empty repository for one subtest.
type RepositoryFactory func(t *testing.T) services.DocumentRepository

// RunRepositoryContract exercises the behaviour every DocumentRepository
// implementation must share.
func RunRepositoryContract(t *testing.T, newRepo RepositoryFactory) {
	ctx := context.Background()

	t.Run("new document starts at version 1", func(t *testing.T) {
		repo := newRepo(t)
		commit := NewDocumentCommit("alice", "Q3 Report", ReportText)
		commit.Description = "numbers"

		doc, version, err := repo.CommitDecision(ctx, commit)
		require.NoError(t, err)

		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "alice", doc.OwnerID)
		assert.Equal(t, "Q3 Report", doc.Title)
		assert.Equal(t, "numbers", doc.Description)
		assert.Equal(t, ReportText, doc.ExtractedText)
		assert.Equal(t, model.FormatPlainText, doc.Format)
		assert.Equal(t, 1, doc.LatestVersion)
		assert.Equal(t, doc.ID, version.DocumentID)
		assert.Equal(t, 1, version.VersionNumber)
		assert.Equal(t, "alice", version.UploadedBy)
		assert.Equal(t, commit.File.StoredFilename, version.StoredFilename)
	})

	t.Run("new version overwrites text and keeps title", func(t *testing.T) {
		repo := newRepo(t)
		original := CommitTestDocument(t, repo, "alice", "Q3 Report", ReportText)

		commit := NewVersionCommit("alice", original.ID, 2, ReportRevisedText)
		doc, version, err := repo.CommitDecision(ctx, commit)
		require.NoError(t, err)

		assert.Equal(t, original.ID, doc.ID)
		assert.Equal(t, "Q3 Report", doc.Title)
		assert.Equal(t, ReportRevisedText, doc.ExtractedText)
		assert.Equal(t, commit.File.StoredFilename, doc.StoredFilename)
		assert.Equal(t, 2, doc.LatestVersion)
		assert.Equal(t, 2, version.VersionNumber)

		versions, err := repo.ListVersions(ctx, original.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].VersionNumber)
		assert.Equal(t, 1, versions[1].VersionNumber)
	})

	t.Run("rejected version commit leaves no trace", func(t *testing.T) {
		repo := newRepo(t)
		doc := CommitTestDocument(t, repo, "alice", "Report", ReportText)

		tests := []struct {
			name     string
			commit   services.Commit
			sentinel error
		}{
			{"stale version number", NewVersionCommit("alice", doc.ID, 3, ReportRevisedText), internalErrors.ErrVersionConflict},
			{"other owner", NewVersionCommit("mallory", doc.ID, 2, ReportRevisedText), internalErrors.ErrForbidden},
			{"missing target", NewVersionCommit("alice", "does-not-exist", 2, ReportRevisedText), internalErrors.ErrDocumentNotFound},
		}
		for _, tt := range tests {
			_, _, err := repo.CommitDecision(ctx, tt.commit)
			assert.True(t, errors.Is(err, tt.sentinel), "%s: got %v", tt.name, err)
		}

		stored, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.LatestVersion)
		assert.Equal(t, ReportText, stored.ExtractedText)
	})

	t.Run("candidates are the owner's documents with text, newest first", func(t *testing.T) {
		repo := newRepo(t)
		first := CommitTestDocument(t, repo, "alice", "First", ReportText)
		CommitTestDocument(t, repo, "alice", "Image", "")
		CommitTestDocument(t, repo, "bob", "Bob's", RecipeText)
		second := CommitTestDocument(t, repo, "alice", "Second", RecipeText)
		_, _, err := repo.CommitDecision(ctx, NewVersionCommit("alice", first.ID, 2, ReportRevisedText))
		require.NoError(t, err)

		candidates, err := repo.ListCandidates(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, second.ID, candidates[0].DocumentID)
		assert.Equal(t, 1, candidates[0].LatestVersion)
		assert.Equal(t, first.ID, candidates[1].DocumentID)
		assert.Equal(t, "First", candidates[1].Title)
		assert.Equal(t, ReportRevisedText, candidates[1].ExtractedText)
		assert.Equal(t, 2, candidates[1].LatestVersion)

		none, err := repo.ListCandidates(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("list documents newest first", func(t *testing.T) {
		repo := newRepo(t)
		a := CommitTestDocument(t, repo, "alice", "A", ReportText)
		b := CommitTestDocument(t, repo, "alice", "B", "")
		CommitTestDocument(t, repo, "bob", "C", RecipeText)

		docs, err := repo.ListDocuments(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, b.ID, docs[0].ID)
		assert.Equal(t, a.ID, docs[1].ID)
	})

	t.Run("lookups of missing records", func(t *testing.T) {
		repo := newRepo(t)
		doc := CommitTestDocument(t, repo, "alice", "A", ReportText)

		_, err := repo.GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)

		_, err = repo.ListVersions(ctx, "missing")
		assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)

		_, err = repo.GetVersion(ctx, doc.ID, 5)
		assert.ErrorIs(t, err, internalErrors.ErrVersionNotFound)

		v, err := repo.GetVersion(ctx, doc.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, v.VersionNumber)
	})

	t.Run("updates", func(t *testing.T) {
		repo := newRepo(t)
		doc := CommitTestDocument(t, repo, "alice", "A", "")

		require.NoError(t, repo.UpdateExtractedText(ctx, doc.ID, ReportText))
		require.NoError(t, repo.UpdateVisibility(ctx, doc.ID, model.VisibilityPublic))

		stored, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, ReportText, stored.ExtractedText)
		assert.Equal(t, model.VisibilityPublic, stored.Visibility)

		assert.ErrorIs(t, repo.UpdateExtractedText(ctx, "missing", "x"), internalErrors.ErrDocumentNotFound)
		assert.ErrorIs(t, repo.UpdateVisibility(ctx, "missing", model.VisibilityPublic), internalErrors.ErrDocumentNotFound)
	})

	t.Run("delete returns removed versions", func(t *testing.T) {
		repo := newRepo(t)
		doc := CommitTestDocument(t, repo, "alice", "A", ReportText)
		_, _, err := repo.CommitDecision(ctx, NewVersionCommit("alice", doc.ID, 2, ReportRevisedText))
		require.NoError(t, err)

		removed, err := repo.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, removed, 2)

		_, err = repo.GetDocument(ctx, doc.ID)
		assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)
		_, err = repo.GetVersion(ctx, doc.ID, 1)
		assert.ErrorIs(t, err, internalErrors.ErrVersionNotFound)

		_, err = repo.DeleteDocument(ctx, doc.ID)
		assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)
	})
}
