package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/service"
)

// BusinessHandler handles business data sync requests
type BusinessHandler struct {
	catalogService service.CatalogService
}

// NewBusinessHandler creates a new business data handler
func NewBusinessHandler(catalogService service.CatalogService) *BusinessHandler {
	return &BusinessHandler{
		catalogService: catalogService,
	}
}

// Fetch triggers a business data sync, or returns the fixture snapshot
// when the test_data action is requested.
func (h *BusinessHandler) Fetch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.BusinessDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	switch req.Action {
	case dto.ActionTestData:
		c.JSON(http.StatusOK, dto.BusinessDataResponse{
			Success:      true,
			BusinessData: h.catalogService.TestData(),
		})
		return
	case "", dto.ActionFetchData:
		// Fall through to the real sync.
	default:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "unknown action " + req.Action,
		})
		return
	}

	data, err := h.catalogService.FetchAndStoreBusinessData(c.Request.Context(), userID, req.ConnectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BusinessDataResponse{
		Success:      true,
		BusinessData: data,
	})
}
