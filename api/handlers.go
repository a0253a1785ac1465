package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-document-repository/internal/analytics"
	"github.com/gcbaptista/go-document-repository/internal/export"
	"github.com/gcbaptista/go-document-repository/internal/jobs"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
	"github.com/gcbaptista/go-document-repository/internal/upload"
)

// Dependencies holds the services the handlers call into.
type Dependencies struct {
	Uploads    *upload.Service
	Jobs       *jobs.Manager
	Analytics  *analytics.Service
	Exporter   *export.Service
	Similarity *similarity.Calculator
	// MaxUploadBytes limits multipart bodies on upload routes; 0 disables the limit.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// API holds dependencies for API handlers.
type API struct {
	uploads        *upload.Service
	jobs           *jobs.Manager
	analytics      *analytics.Service
	exporter       *export.Service
	similarity     *similarity.Calculator
	maxUploadBytes int64
	logger         *slog.Logger
	startedAt      time.Time
}

// NewAPI creates a new API handler structure.
func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		uploads:        deps.Uploads,
		jobs:           deps.Jobs,
		analytics:      deps.Analytics,
		exporter:       deps.Exporter,
		similarity:     deps.Similarity,
		maxUploadBytes: deps.MaxUploadBytes,
		logger:         logger,
		startedAt:      time.Now(),
	}
}

// SetupRoutes defines all the API routes of the document repository.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	apiHandler := NewAPI(deps)

	router.Use(RequestIDMiddleware())

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Analytics route
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Similarity diagnostics
	router.POST("/similarity", apiHandler.CompareTextsHandler)

	authed := router.Group("")
	authed.Use(UserIdentityMiddleware())

	uploadLimit := func(c *gin.Context) { c.Next() }
	if apiHandler.maxUploadBytes > 0 {
		uploadLimit = RequestSizeLimitMiddleware(apiHandler.maxUploadBytes)
	}

	// Document routes, scoped to the calling user
	docRoutes := authed.Group("/documents")
	{
		docRoutes.POST("", uploadLimit, apiHandler.UploadDocumentHandler)        // Upload a file (new document or new version)
		docRoutes.POST("/preview", uploadLimit, apiHandler.PreviewUploadHandler) // Decision without storing
		docRoutes.GET("", apiHandler.ListDocumentsHandler)                       // List own documents
		docRoutes.GET("/export.xlsx", apiHandler.ExportDocumentsHandler)         // Inventory workbook
		docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)             // Get one document
		docRoutes.DELETE("/:documentId", apiHandler.DeleteDocumentHandler)       // Delete with all versions
		docRoutes.PATCH("/:documentId/visibility", apiHandler.UpdateVisibilityHandler)
		docRoutes.GET("/:documentId/versions", apiHandler.ListVersionsHandler)
		docRoutes.GET("/:documentId/download", apiHandler.DownloadLatestHandler)
		docRoutes.GET("/:documentId/versions/:version/download", apiHandler.DownloadVersionHandler)
		docRoutes.GET("/:documentId/similar", apiHandler.SimilarDocumentsHandler)
	}

	// Job management routes
	jobRoutes := authed.Group("/jobs")
	{
		jobRoutes.POST("/reextract", apiHandler.StartReextractHandler) // Re-run extraction on own documents
		jobRoutes.GET("", apiHandler.ListJobsHandler)                  // List own jobs
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler)     // Get job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)             // Get job status by ID
	}
}
