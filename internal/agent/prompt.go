package agent

import (
	"fmt"
	"slices"
	"strings"

	"relaybot/internal/domain"
)

// toolPrompt asks the model to answer with a JSON object to call the tool, or
// with a JSON string otherwise. The tool block is rendered from the registry.
const toolPrompt = `
%s
Given the user's request, you must decide whether to use this tool or not.
If you decide to use the tool, you must respond with a JSON object that represents the tool call.
The JSON object must have the following format:
{
  "tool_name": "send_message",
  "channel": "<channel_name_or_id>",
  "message": "<message>"
}

Examples:
- For "send hello to #general": {"tool_name": "send_message", "channel": "general", "message": "hello"}
- For "post hi in the announcements channel": {"tool_name": "send_message", "channel": "announcements", "message": "hi"}
- For "send test to channel 123456": {"tool_name": "send_message", "channel": "123456", "message": "test"}

If you decide not to use the tool, you can respond with a natural language message.

User's request: "%s"
`

// BuildPrompt renders the tool definitions and inserts the user's message.
func BuildPrompt(defs []domain.ToolDefinition, userMessage string) string {
	var b strings.Builder
	for _, def := range defs {
		writeTool(&b, def)
	}
	return fmt.Sprintf(toolPrompt, b.String(), userMessage)
}

func writeTool(b *strings.Builder, def domain.ToolDefinition) {
	fmt.Fprintf(b, "You have access to a tool called %q.\n", def.Name)
	b.WriteString(def.Description)
	b.WriteString("\n\nThe tool has the following arguments:\n")

	props, _ := def.Parameters["properties"].(map[string]any)
	for _, name := range argOrder(def.Parameters, props) {
		p, _ := props[name].(map[string]any)
		typ, _ := p["type"].(string)
		desc, _ := p["description"].(string)
		fmt.Fprintf(b, "- %s (%s): %s\n", name, typeHint(typ), desc)
	}
}

// argOrder lists required arguments in their declared order, then the rest
// by name.
func argOrder(params, props map[string]any) []string {
	required, _ := params["required"].([]string)
	order := make([]string, 0, len(props))
	for _, name := range required {
		if _, ok := props[name]; ok {
			order = append(order, name)
		}
	}
	var rest []string
	for name := range props {
		if !slices.Contains(order, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

func typeHint(schemaType string) string {
	switch schemaType {
	case "string":
		return "str"
	case "integer":
		return "int"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "":
		return "any"
	default:
		return schemaType
	}
}
