package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CompareTextsHandler returns the similarity breakdown of two texts.
// Request Body: SimilarityRequest
func (api *API) CompareTextsHandler(c *gin.Context) {
	var req SimilarityRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateSimilarityRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	c.JSON(http.StatusOK, api.similarity.Breakdown(req.TextA, req.TextB))
}
