// Package testing provides utilities and helpers for testing the document repository.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

// Sample extracted texts shared by tests. The first two are near duplicates.
const (
	ReportText        = "quarterly financial report revenue increased across every region while operating costs remained stable and margins improved"
	ReportRevisedText = "quarterly financial report revenue increased across every region while operating costs remained stable and margins improved slightly"
	RecipeText        = "chocolate cake recipe flour sugar butter eggs cocoa baking powder oven temperature"
)

// WriteTestFile writes content into a new file under a per-test temporary directory.
func WriteTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "Failed to write test file")
	return path
}

// NewDocumentCommit builds a commit that stores a brand new document.
func NewDocumentCommit(ownerID, title, text string) services.Commit {
	stored := "doc_" + uuid.New().String() + ".txt"
	return services.Commit{
		OwnerID:    ownerID,
		Title:      title,
		Visibility: model.VisibilityPrivate,
		File: model.StoredFile{
			OriginalFilename: title + ".txt",
			StoredFilename:   stored,
			Path:             filepath.Join("blobs", stored),
			Size:             int64(len(text)),
			Format:           model.FormatPlainText,
		},
		ExtractedText: text,
		Decision:      model.Decision{Kind: model.DecisionNewDocument},
	}
}

// NewVersionCommit builds a commit that appends version next to documentID.
func NewVersionCommit(ownerID, documentID string, next int, text string) services.Commit {
	c := NewDocumentCommit(ownerID, "ignored", text)
	c.Decision = model.Decision{
		Kind:             model.DecisionNewVersion,
		TargetDocumentID: documentID,
		NextVersion:      next,
		Score:            95,
	}
	return c
}

// CommitTestDocument stores a new document and fails the test on error.
func CommitTestDocument(t *testing.T, repo services.DocumentRepository, ownerID, title, text string) model.Document {
	t.Helper()
	doc, _, err := repo.CommitDecision(context.Background(), NewDocumentCommit(ownerID, title, text))
	require.NoError(t, err, "Failed to commit test document")
	return doc
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it finishes or times out.
// A failed job fails the test.
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				if opts.LogProgress {
					t.Logf("Job %s completed in %v", jobID, job.CompletedAt.Sub(job.CreatedAt))
				}
				return job
			case model.JobStatusFailed:
				t.Fatalf("Job %s failed: %s", jobID, job.Error)
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedOwner string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedOwner, job.OwnerID, "Job owner should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
