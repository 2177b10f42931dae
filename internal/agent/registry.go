package agent

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ovela/onboard-service/pkg/observability"
	"go.uber.org/zap"
)

// Handler executes one tool call. The returned string is spoken verbatim
// by the remote agent, so it must be conversational or compact JSON.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is one callable the remote conversational agent may invoke
// mid-session.
type Tool struct {
	Name        string
	Description string
	Handle      Handler
}

// Registry dispatches tool calls by name. Dispatch never returns an error:
// any failure, including a panic, becomes a structured failure string so
// the agent can recover the conversation.
type Registry struct {
	tools   map[string]Tool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *zap.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a tool. Later registrations with the same name win.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named tool and always produces a speakable string.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (result string) {
	r.metrics.ToolCalls.Add(ctx, 1)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool call panicked",
				zap.String("tool", name),
				zap.Any("panic", rec),
			)
			result = Failure("Something went wrong handling that request. Please try again.")
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", zap.String("tool", name))
		return Failure("I don't have a tool called " + name + ".")
	}

	out, err := tool.Handle(ctx, args)
	if err != nil {
		r.logger.Error("tool call failed",
			zap.String("tool", name),
			zap.Error(err),
		)
		return Failure("That didn't work: " + err.Error())
	}

	return out
}

type toolResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Success encodes a successful tool result.
func Success(message string, data map[string]any) string {
	return encodeResult(toolResult{Success: true, Message: message, Data: data})
}

// Failure encodes a failed tool result.
func Failure(message string) string {
	return encodeResult(toolResult{Success: false, Message: message})
}

func encodeResult(res toolResult) string {
	b, err := json.Marshal(res)
	if err != nil {
		// toolResult is marshal-safe for all inputs we build; last resort.
		return `{"success":false,"message":"internal encoding error"}`
	}
	return string(b)
}
