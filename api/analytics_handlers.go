package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetAnalyticsHandler returns the upload dashboard across all users.
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	dashboard, err := api.analytics.GetDashboardData()
	if err != nil {
		SendInternalError(c, "retrieve analytics data", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// HealthCheckHandler reports liveness together with the active extractor and job load.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "go-document-repository",
		"extractor":       api.uploads.ExtractorName(),
		"active_jobs":     api.jobs.GetCurrentWorkload(),
		"tracked_uploads": api.analytics.EventCount(),
		"uptime_seconds":  int64(time.Since(api.startedAt).Seconds()),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
