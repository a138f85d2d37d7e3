package ai

import "github.com/sashabaranov/go-openai"

// NewFunctionTool builds a JSON-schema function descriptor in the shape the
// chat-completions API expects.
func NewFunctionTool(name, description string, parameters map[string]any, required []string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": parameters,
				"required":   required,
			},
		},
	}
}
