package domain

import "context"

// ToolSendMessage is the only tool name the model may invoke.
const ToolSendMessage = "send_message"

// Tool is the interface for capabilities the model can invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolInvocation is a validated send_message call.
type ToolInvocation struct {
	Tool    string
	Channel string // numeric ID or channel name, optionally #-prefixed
	Message string
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
