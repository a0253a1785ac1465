package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-document-repository/model"
)

// UploadFormFile is the multipart field holding the uploaded file.
const UploadFormFile = "document_file"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// bindUpload reads the multipart upload form. The caller closes the returned file.
func (api *API) bindUpload(c *gin.Context) (model.UploadRequest, multipart.File, bool) {
	header, err := c.FormFile(UploadFormFile)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeFileTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit))
			return model.UploadRequest{}, nil, false
		}
		result := &ValidationResult{Valid: true}
		result.AddError(UploadFormFile, "Please select a file to upload")
		SendValidationError(c, result)
		return model.UploadRequest{}, nil, false
	}

	visibility, result := ValidateVisibility(c.PostForm("visibility"), true)
	if result.HasErrors() {
		SendValidationError(c, result)
		return model.UploadRequest{}, nil, false
	}

	file, err := header.Open()
	if err != nil {
		SendInternalError(c, "read uploaded file", err)
		return model.UploadRequest{}, nil, false
	}

	return model.UploadRequest{
		OwnerID:          currentUser(c),
		Title:            c.PostForm("title"),
		Description:      c.PostForm("description"),
		Visibility:       visibility,
		OriginalFilename: filepath.Base(header.Filename),
		Size:             header.Size,
		Content:          file,
	}, file, true
}

// UploadDocumentHandler stores an uploaded file as a new document or as a
// new version of the caller's most similar document.
func (api *API) UploadDocumentHandler(c *gin.Context) {
	req, file, ok := api.bindUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := api.uploads.Upload(c.Request.Context(), req)
	if err != nil {
		SendServiceError(c, "upload", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// PreviewUploadHandler returns the decision an upload would produce without storing it.
func (api *API) PreviewUploadHandler(c *gin.Context) {
	req, file, ok := api.bindUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	decision, err := api.uploads.Preview(c.Request.Context(), req)
	if err != nil {
		SendServiceError(c, "preview", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decision": decision,
		"message":  decision.Message(),
	})
}

// ListDocumentsHandler lists the caller's documents, newest first.
func (api *API) ListDocumentsHandler(c *gin.Context) {
	docs, err := api.uploads.ListDocuments(c.Request.Context(), currentUser(c))
	if err != nil {
		SendServiceError(c, "list documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocumentHandler returns a document the caller may read.
func (api *API) GetDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := api.uploads.GetDocument(c.Request.Context(), currentUser(c), documentID)
	if err != nil {
		SendServiceError(c, "get document", err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler deletes one of the caller's documents.
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.uploads.Delete(c.Request.Context(), currentUser(c), documentID); err != nil {
		SendServiceError(c, "delete document", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document '" + documentID + "' deleted successfully"})
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

// UpdateVisibilityHandler switches a document between Public and Private.
func (api *API) UpdateVisibilityHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var body visibilityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	visibility, result := ValidateVisibility(body.Visibility, false)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.uploads.SetVisibility(c.Request.Context(), currentUser(c), documentID, visibility); err != nil {
		SendServiceError(c, "update visibility", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Visibility updated",
		"visibility": visibility,
	})
}

// ListVersionsHandler lists a document's versions, highest first.
func (api *API) ListVersionsHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	versions, err := api.uploads.ListVersions(c.Request.Context(), currentUser(c), documentID)
	if err != nil {
		SendServiceError(c, "list versions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"versions":    versions,
		"total":       len(versions),
	})
}

// DownloadLatestHandler streams the file of the latest version.
func (api *API) DownloadLatestHandler(c *gin.Context) {
	api.download(c, 0)
}

// DownloadVersionHandler streams the file of a specific version.
func (api *API) DownloadVersionHandler(c *gin.Context) {
	n, result := ValidateVersionNumber(c.Param("version"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	api.download(c, n)
}

func (api *API) download(c *gin.Context, versionNumber int) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, version, file, err := api.uploads.OpenVersion(c.Request.Context(), currentUser(c), documentID, versionNumber)
	if err != nil {
		SendServiceError(c, "download", err)
		return
	}
	defer file.Close()

	filename := doc.OriginalFilename
	if version.VersionNumber != doc.LatestVersion {
		ext := filepath.Ext(filename)
		filename = fmt.Sprintf("%s_v%d%s", filename[:len(filename)-len(ext)], version.VersionNumber, ext)
	}

	c.DataFromReader(http.StatusOK, version.FileSize, "application/octet-stream", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

// SimilarDocumentsHandler ranks the caller's other documents against one of theirs.
func (api *API) SimilarDocumentsHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	matches, err := api.uploads.Similar(c.Request.Context(), currentUser(c), documentID)
	if err != nil {
		SendServiceError(c, "rank similar documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"matches":     matches,
		"total":       len(matches),
	})
}

// ExportDocumentsHandler returns the caller's inventory as an XLSX workbook.
func (api *API) ExportDocumentsHandler(c *gin.Context) {
	data, err := api.exporter.ExportDocumentsXLSX(c.Request.Context(), currentUser(c))
	if err != nil {
		SendError(c, http.StatusInternalServerError, ErrorCodeExportFailed, "Export failed: "+err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
