package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/agent"
	"github.com/ovela/onboard-service/internal/dto"
)

// AgentHandler exposes the voice agent's tool-call webhook. The agent
// platform POSTs structured arguments and speaks the returned string
// verbatim, so this endpoint always answers 200 with a result string.
type AgentHandler struct {
	registry    *agent.Registry
	toolTimeout time.Duration
}

// NewAgentHandler creates a new agent handler. toolTimeout bounds each
// dispatch; the voice session stalls while a tool runs, so a hung
// upstream call must not hold the conversation open.
func NewAgentHandler(registry *agent.Registry, toolTimeout time.Duration) *AgentHandler {
	return &AgentHandler{
		registry:    registry,
		toolTimeout: toolTimeout,
	}
}

// ToolCall dispatches one tool invocation by name
func (h *AgentHandler) ToolCall(c *gin.Context) {
	args, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, dto.ToolCallResponse{
			Result: agent.Failure("I couldn't read that request."),
		})
		return
	}
	if len(args) == 0 {
		args = []byte("{}")
	}

	ctx := c.Request.Context()
	if h.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.toolTimeout)
		defer cancel()
	}

	result := h.registry.Dispatch(ctx, c.Param("name"), args)

	c.JSON(http.StatusOK, dto.ToolCallResponse{
		Result: result,
	})
}

// Tools lists the registered tool names, for agent configuration checks
func (h *AgentHandler) Tools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tools": h.registry.Names(),
	})
}
