package domain

import (
	"errors"
	"fmt"
)

// InferenceResult is the interpreted output of one model call. It is one of
// ToolCallResult, TextResult, EmptyResult or MalformedResult.
type InferenceResult interface {
	isInferenceResult()
}

// ToolCallResult is a JSON object carrying a tool_name field.
type ToolCallResult struct {
	Name      string
	Arguments map[string]any
}

// TextResult is a bare JSON string to be relayed verbatim.
type TextResult struct {
	Text string
}

// EmptyResult covers failed calls and falsy payloads (null, "", {}, [], 0, false).
type EmptyResult struct{}

// MalformedResult is any other shape the model produced.
type MalformedResult struct {
	Raw string
}

func (ToolCallResult) isInferenceResult()  {}
func (TextResult) isInferenceResult()      {}
func (EmptyResult) isInferenceResult()     {}
func (MalformedResult) isInferenceResult() {}

// ErrInvalidToolCall is returned when a tool call lacks a required argument.
var ErrInvalidToolCall = errors.New("invalid tool call")

// Invocation extracts the send_message arguments. Both channel and message
// must be present and be strings.
func (r ToolCallResult) Invocation() (ToolInvocation, error) {
	channel, ok := r.Arguments["channel"].(string)
	if !ok {
		return ToolInvocation{}, fmt.Errorf("%w: channel missing or not a string", ErrInvalidToolCall)
	}
	message, ok := r.Arguments["message"].(string)
	if !ok {
		return ToolInvocation{}, fmt.Errorf("%w: message missing or not a string", ErrInvalidToolCall)
	}
	return ToolInvocation{Tool: r.Name, Channel: channel, Message: message}, nil
}
