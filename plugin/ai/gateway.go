package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	// requestTimeout bounds a single chat-completion round trip.
	requestTimeout = 30 * time.Second

	// maxToolIterations bounds the tool-calling loop. The loop normally
	// terminates when a response carries no tool calls; this guard stops
	// a model that keeps requesting tools forever.
	maxToolIterations = 8
)

// maxCompletionTokenModels lists models that take the token budget via
// max_completion_tokens and only accept the default temperature.
var maxCompletionTokenModels = map[string]bool{
	"gpt-5-nano": true,
	"gpt-5.1":    true,
}

// CompletionRequest is a single chat-completion call.
type CompletionRequest struct {
	Messages    []openai.ChatCompletionMessage
	MaxTokens   int
	Temperature float32
	Tools       []openai.Tool
	ToolChoice  any
}

// Completion is the outcome of a completion (or a full tool loop).
type Completion struct {
	Content      string
	Usage        Usage
	Cost         float64
	Model        string
	FinishReason string
	ToolCalls    []openai.ToolCall

	// Image holds a tool-generated image captured during a tool loop.
	// It is only set on the final completion, never on intermediate turns.
	Image []byte
}

// ToolResult is what a tool handler returns to the loop.
type ToolResult struct {
	Text  string
	Image []byte
	Cost  float64
}

// ToolHandler executes one named tool with raw JSON arguments.
type ToolHandler struct {
	// ReturnType is "text" or "image". Image results are captured aside and
	// attached to the final completion; only Text goes back into history.
	ReturnType string
	Call       func(ctx context.Context, args json.RawMessage) (*ToolResult, error)
}

// ToolCompletionRequest drives the tool-calling loop.
type ToolCompletionRequest struct {
	Messages    []openai.ChatCompletionMessage
	Tools       []openai.Tool
	Handlers    map[string]ToolHandler
	MaxTokens   int
	Temperature float32
}

// Service is the LLM gateway interface.
type Service interface {
	// Complete performs one chat completion.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// CompleteWithTools runs the tool-calling protocol loop until the model
	// answers without requesting a tool.
	CompleteWithTools(ctx context.Context, req ToolCompletionRequest) (*Completion, error)
}

type openAIService struct {
	client *openai.Client
	cfg    *Config
}

// NewService creates a gateway backed by the OpenAI chat-completions API.
func NewService(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &openAIService{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

func (s *openAIService) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	apiReq := openai.ChatCompletionRequest{
		Model:    s.cfg.Model,
		Messages: req.Messages,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.cfg.MaxTokens
	}
	if maxCompletionTokenModels[s.cfg.Model] {
		apiReq.MaxCompletionTokens = maxTokens
		apiReq.Temperature = 1
	} else {
		apiReq.MaxTokens = maxTokens
		apiReq.Temperature = req.Temperature
	}

	if len(req.Tools) > 0 {
		apiReq.Tools = req.Tools
		apiReq.ToolChoice = req.ToolChoice
	}

	resp, err := s.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("unexpected completion response: no choices", "model", resp.Model)
		return nil, fmt.Errorf("unexpected response format: no choices returned")
	}

	choice := resp.Choices[0]
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if resp.Usage.PromptTokensDetails != nil {
		usage.CachedTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	model := resp.Model
	if model == "" {
		model = s.cfg.Model
	}

	completion := &Completion{
		Content:      choice.Message.Content,
		Usage:        usage,
		Cost:         ComputeCost(s.cfg.Model, usage),
		Model:        model,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    choice.Message.ToolCalls,
	}

	slog.Debug("chat completion finished",
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"cached_tokens", usage.CachedTokens,
		"cost", completion.Cost,
		"tool_calls", len(completion.ToolCalls))

	return completion, nil
}

func (s *openAIService) CompleteWithTools(ctx context.Context, req ToolCompletionRequest) (*Completion, error) {
	history := make([]openai.ChatCompletionMessage, len(req.Messages))
	copy(history, req.Messages)

	var toolCost float64
	var toolImage []byte

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		completion, err := s.Complete(ctx, CompletionRequest{
			Messages:    history,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Tools:       req.Tools,
			ToolChoice:  "auto",
		})
		if err != nil {
			return nil, err
		}

		// No tool call: the loop's only regular exit.
		if len(completion.ToolCalls) == 0 {
			switch {
			case completion.Cost != CostUnknown:
				completion.Cost = addCost(completion.Cost, toolCost)
			case toolCost > 0:
				// Final call cost is unknown; report the known tool
				// spend instead of a sentinel-tainted sum.
				completion.Cost = toolCost
			}
			completion.Image = toolImage
			return completion, nil
		}

		history = append(history, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			ToolCalls: completion.ToolCalls,
		})
		toolCost = addCost(toolCost, completion.Cost)

		// Fan out: every requested tool call becomes its own tool turn.
		for _, call := range completion.ToolCalls {
			result := s.dispatchTool(ctx, req.Handlers, call)
			if result.Image != nil {
				toolImage = result.Image
			}
			toolCost = addCost(toolCost, result.Cost)

			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result.Text,
			})
		}
	}

	return nil, fmt.Errorf("tool loop did not terminate after %d iterations", maxToolIterations)
}

// dispatchTool resolves and runs one tool call. Failures never escape the
// loop: they are reported back to the model as the tool's output text.
func (s *openAIService) dispatchTool(ctx context.Context, handlers map[string]ToolHandler, call openai.ToolCall) *ToolResult {
	name := call.Function.Name

	handler, ok := handlers[name]
	if !ok {
		slog.Warn("model requested unknown tool", "tool", name)
		return &ToolResult{Text: fmt.Sprintf("Error executing tool: unknown tool %q", name)}
	}

	args := json.RawMessage(call.Function.Arguments)
	if !json.Valid(args) {
		slog.Warn("tool call carried invalid JSON arguments", "tool", name)
		return &ToolResult{Text: fmt.Sprintf("Error executing tool %s: invalid arguments", name)}
	}

	result, err := handler.Call(ctx, args)
	if err != nil {
		slog.Error("tool execution failed", "tool", name, "error", err)
		return &ToolResult{Text: fmt.Sprintf("Error executing tool %s: %v", name, err)}
	}

	if handler.ReturnType == "image" {
		return result
	}
	return &ToolResult{Text: result.Text, Cost: result.Cost}
}

// addCost accumulates costs while ignoring the unknown-pricing sentinel.
func addCost(total, cost float64) float64 {
	if cost == CostUnknown {
		return total
	}
	return total + cost
}

// wrapProviderError normalizes transport and provider failures, extracting
// the provider error message when the response body carried one.
func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("API request failed with status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout or connection error: %w", err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}
