package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/service"
)

// signatureHeader carries the broker's webhook signature.
const signatureHeader = "X-Nango-Signature"

// ConnectHandler handles the OAuth bridge endpoints
type ConnectHandler struct {
	connectService service.ConnectService
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(connectService service.ConnectService) *ConnectHandler {
	return &ConnectHandler{
		connectService: connectService,
	}
}

// CreateSession starts an OAuth connect flow for the authenticated user
func (h *ConnectHandler) CreateSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.ConnectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.connectService.CreateSession(c.Request.Context(), userID, req.IntegrationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Webhook receives the broker's asynchronous auth callbacks. The raw body
// is consumed whole so the signature can be verified before parsing.
func (h *ConnectHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBindError(c, err)
		return
	}

	err = h.connectService.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Webhook processed",
	})
}
