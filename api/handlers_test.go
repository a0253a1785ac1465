package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gcbaptista/go-document-repository/config"
	"github.com/gcbaptista/go-document-repository/internal/analytics"
	"github.com/gcbaptista/go-document-repository/internal/export"
	"github.com/gcbaptista/go-document-repository/internal/extract"
	"github.com/gcbaptista/go-document-repository/internal/jobs"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
	testutil "github.com/gcbaptista/go-document-repository/internal/testing"
	"github.com/gcbaptista/go-document-repository/internal/upload"
	"github.com/gcbaptista/go-document-repository/internal/versioning"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/store"
)

type testServer struct {
	router *gin.Engine
	jobs   *jobs.Manager
}

func setupTestRouter(t *testing.T, maxUploadBytes int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := store.NewDocumentStore()
	blobs, err := upload.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	tracker := analytics.NewService("", nil)

	uploads, err := upload.NewService(upload.Dependencies{
		Repository: repo,
		Extractor:  extract.NewMinimal(nil),
		Engine:     versioning.NewEngine(config.VersioningSettings{}),
		Blobs:      blobs,
		Analytics:  tracker,
	})
	require.NoError(t, err)

	manager := jobs.NewManager(2, nil)
	t.Cleanup(manager.Stop)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Uploads:        uploads,
		Jobs:           manager,
		Analytics:      tracker,
		Exporter:       export.NewService(repo, nil),
		Similarity:     similarity.NewCalculator(similarity.DefaultWeights),
		MaxUploadBytes: maxUploadBytes,
	})
	return &testServer{router: router, jobs: manager}
}

func (s *testServer) do(req *http.Request, userID string) *httptest.ResponseRecorder {
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile(UploadFormFile, filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) upload(t *testing.T, userID, title, filename, content string) model.UploadResult {
	t.Helper()
	w := s.do(uploadRequest(t, "/documents", map[string]string{"title": title}, filename, content), userID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result model.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHealthCheckHandler(t *testing.T) {
	s := setupTestRouter(t, 0)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "minimal", body["extractor"])
	assert.EqualValues(t, 0, body["active_jobs"])
}

func TestDocumentRoutesRequireUser(t *testing.T) {
	s := setupTestRouter(t, 0)

	w := s.do(httptest.NewRequest(http.MethodGet, "/documents", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	apiErr := decodeError(t, w)
	assert.Equal(t, ErrorCodeUnauthenticated, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestUploadDocumentHandler(t *testing.T) {
	s := setupTestRouter(t, 0)

	first := s.upload(t, "alice", "Q3 Report", "report.txt", testutil.ReportText)
	assert.Equal(t, model.DecisionNewDocument, first.Decision.Kind)
	assert.Equal(t, 1, first.Version.VersionNumber)
	assert.Equal(t, "Document uploaded successfully as new document!", first.Message)

	second := s.upload(t, "alice", "Q3 Report", "report.txt", testutil.ReportRevisedText)
	assert.Equal(t, model.DecisionNewVersion, second.Decision.Kind)
	assert.Equal(t, first.Document.ID, second.Document.ID)
	assert.Equal(t, 2, second.Version.VersionNumber)
	assert.Contains(t, second.Message, "Stored as new version (Version 2)")

	tests := []struct {
		name   string
		fields map[string]string
		file   string
		code   ErrorCode
	}{
		{"missing file", map[string]string{"title": "T"}, "", ErrorCodeValidationFailed},
		{"missing title", map[string]string{}, "a.txt", ErrorCodeValidationFailed},
		{"bad visibility", map[string]string{"title": "T", "visibility": "Everyone"}, "a.txt", ErrorCodeValidationFailed},
		{"bad extension", map[string]string{"title": "T"}, "a.exe", ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(uploadRequest(t, "/documents", tt.fields, tt.file, "content"), "alice")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestUploadDocumentHandler_BodyTooLarge(t *testing.T) {
	s := setupTestRouter(t, 512)

	w := s.do(uploadRequest(t, "/documents", map[string]string{"title": "Big"}, "big.txt", strings.Repeat("x", 4096)), "alice")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, ErrorCodeFileTooLarge, decodeError(t, w).Code)
}

func TestPreviewUploadHandler(t *testing.T) {
	s := setupTestRouter(t, 0)
	first := s.upload(t, "alice", "Q3 Report", "report.txt", testutil.ReportText)

	w := s.do(uploadRequest(t, "/documents/preview", map[string]string{"title": "Q3 Report"}, "r.txt", testutil.ReportRevisedText), "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Decision model.Decision `json:"decision"`
		Message  string         `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.DecisionNewVersion, body.Decision.Kind)
	assert.Equal(t, first.Document.ID, body.Decision.TargetDocumentID)

	// Nothing was stored.
	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+first.Document.ID+"/versions", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestDocumentAccessHandlers(t *testing.T) {
	s := setupTestRouter(t, 0)
	first := s.upload(t, "alice", "Q3 Report", "report.txt", testutil.ReportText)
	s.upload(t, "alice", "Q3 Report", "report.txt", testutil.ReportRevisedText)
	id := first.Document.ID

	w := s.do(httptest.NewRequest(http.MethodGet, "/documents", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.NotContains(t, w.Body.String(), "extracted_text")

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), "bob")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, ErrorCodeForbidden, decodeError(t, w).Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/missing", nil), "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeDocumentNotFound, decodeError(t, w).Code)

	// Make it public so bob can read it.
	patch := httptest.NewRequest(http.MethodPatch, "/documents/"+id+"/visibility", strings.NewReader(`{"visibility":"Public"}`))
	patch.Header.Set("Content-Type", "application/json")
	w = s.do(patch, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	badPatch := httptest.NewRequest(http.MethodPatch, "/documents/"+id+"/visibility", strings.NewReader(`{"visibility":"Friends"}`))
	badPatch.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(badPatch, "alice").Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), "bob")
	require.Equal(t, http.StatusOK, w.Code)
	var doc model.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, 2, doc.LatestVersion)
	assert.Equal(t, model.VisibilityPublic, doc.Visibility)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), "bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testutil.ReportRevisedText, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="report.txt"`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/versions/1/download", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testutil.ReportText, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="report_v1.txt"`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/versions/9/download", nil), "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeVersionNotFound, decodeError(t, w).Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/versions/zero/download", nil), "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), "bob")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarityHandlers(t *testing.T) {
	s := setupTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/similarity", strings.NewReader(`{"text_a":"the quick brown fox","text_b":"the quick brown fox"}`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req, "")
	require.Equal(t, http.StatusOK, w.Code)

	var scores similarity.Scores
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scores))
	assert.InDelta(t, 100.0, scores.Percentage, 1e-9)

	req = httptest.NewRequest(http.MethodPost, "/similarity", strings.NewReader(`{"text_a":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decodeError(t, w).Details, 2)

	report := s.upload(t, "alice", "Q3 Report", "a.txt", testutil.ReportText)
	s.upload(t, "alice", "Cake", "b.txt", testutil.RecipeText)

	w = s.do(httptest.NewRequest(http.MethodGet, "/documents/"+report.Document.ID+"/similar", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Matches []model.Match `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "Cake", body.Matches[0].Title)
}

func TestExportDocumentsHandler(t *testing.T) {
	s := setupTestRouter(t, 0)
	s.upload(t, "alice", "Q3 Report", "a.txt", testutil.ReportText)

	w := s.do(httptest.NewRequest(http.MethodGet, "/documents/export.xlsx", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestJobHandlers(t *testing.T) {
	s := setupTestRouter(t, 0)
	s.upload(t, "alice", "Q3 Report", "a.txt", testutil.ReportText)

	w := s.do(httptest.NewRequest(http.MethodPost, "/jobs/reextract", nil), "alice")
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	job := testutil.WaitForJobCompletion(t, s.jobs, accepted.JobID, testutil.JobPollingOptions{
		Timeout:      5 * time.Second,
		PollInterval: 10 * time.Millisecond,
	})
	testutil.AssertJobCompleted(t, job, model.JobTypeReextract, "alice")

	w = s.do(httptest.NewRequest(http.MethodGet, "/jobs/"+accepted.JobID, nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/jobs/"+accepted.JobID, nil), "bob")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeJobNotFound, decodeError(t, w).Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/jobs?status=completed", nil), "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/jobs?status=bogus", nil), "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/jobs/metrics", nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success_rate")
}

func TestGetAnalyticsHandler(t *testing.T) {
	s := setupTestRouter(t, 0)
	s.upload(t, "alice", "Q3 Report", "a.txt", testutil.ReportText)
	s.upload(t, "alice", "Q3 Report", "a.txt", testutil.ReportRevisedText)

	w := s.do(httptest.NewRequest(http.MethodGet, "/analytics", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var dashboard model.AnalyticsDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, 2, dashboard.TotalUploads)
	assert.Equal(t, 1, dashboard.NewVersions)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), UserIDHeader)
}
