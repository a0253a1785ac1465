package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/model"
)

// StartReextractHandler starts a job that re-runs text extraction over the
// latest version of every document of the caller.
func (api *API) StartReextractHandler(c *gin.Context) {
	ownerID := currentUser(c)

	jobID, err := api.jobs.Submit(model.JobTypeReextract, ownerID, nil, func(ctx context.Context, job *model.Job) error {
		updated, err := api.uploads.Reextract(ctx, ownerID, func(current, total int, message string) {
			api.jobs.UpdateJobProgress(job.ID, current, total, message)
		})
		if err != nil {
			return err
		}
		api.logger.Info("re-extraction finished", "owner_id", ownerID, "job_id", job.ID, "updated", updated)
		return nil
	})
	if err != nil {
		SendJobExecutionError(c, "re-extraction", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Re-extraction started",
		"job_id":  jobID,
	})
}

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := api.jobs.GetJob(jobID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrJobNotFound) {
			SendJobNotFoundError(c, jobID)
			return
		}
		SendInternalError(c, "get job", err)
		return
	}
	// Other users' jobs are reported as missing.
	if job.OwnerID != currentUser(c) {
		SendJobNotFoundError(c, jobID)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobsHandler handles requests to list the caller's jobs
func (api *API) ListJobsHandler(c *gin.Context) {
	statusFilter, result := ValidateJobStatus(c.Query("status"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	jobs := api.jobs.ListJobs(currentUser(c), statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":          api.jobs.GetMetrics(),
		"success_rate":     api.jobs.GetJobSuccessRate(),
		"current_workload": api.jobs.GetCurrentWorkload(),
	})
}
