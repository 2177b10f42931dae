package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/service"
)

// ConversationHandler manages the onboarding conversation transcript
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
	}
}

// Messages returns the user's onboarding transcript in order
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversation, messages, err := h.conversationService.Transcript(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessagesResponse{
		ConversationID: conversation.ID,
		Messages:       messages,
	})
}

// Append records one message on the user's onboarding conversation
func (h *ConversationHandler) Append(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.conversationService.Append(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// Clear wipes the user's onboarding transcript
func (h *ConversationHandler) Clear(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.conversationService.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Conversation cleared"})
}
