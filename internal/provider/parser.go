package provider

import (
	"encoding/json"
	"fmt"

	"relaybot/internal/domain"
)

// ParseResult decodes the model's JSON text and classifies it. An error is
// returned only when the text is not JSON at all.
func ParseResult(raw []byte) (domain.InferenceResult, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return classify(v, raw), nil
}

func classify(v any, raw []byte) domain.InferenceResult {
	if isFalsy(v) {
		return domain.EmptyResult{}
	}
	switch val := v.(type) {
	case string:
		return domain.TextResult{Text: val}
	case map[string]any:
		if name, ok := val["tool_name"].(string); ok {
			args := make(map[string]any, len(val))
			for k, arg := range val {
				if k != "tool_name" {
					args[k] = arg
				}
			}
			return domain.ToolCallResult{Name: name, Arguments: args}
		}
	}
	return domain.MalformedResult{Raw: string(raw)}
}

// isFalsy matches the payloads that carry no usable content:
// null, false, 0, "", {} and [].
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case float64:
		return val == 0
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}
