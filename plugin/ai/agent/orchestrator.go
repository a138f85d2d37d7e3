package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/chartlyhq/chartly/plugin/ai"
)

const systemPrompt = `You are Chartly, an assistant that answers questions about the user's Invoicing and Accounting data.
You have two tools:
- query_returning_text: answers a data question with a textual record listing.
- query_returning_plot: answers a data question with a chart image.
Use query_returning_plot when the user asks for a chart, graph, plot or visualization; otherwise use query_returning_text.
Pass the user's question to the tool verbatim as the query argument.
When a tool returns a message starting with "Chartly only", "Your query" or "Can you please", relay that message to the user as the answer.
When a tool reports that a chart was generated, tell the user the chart is ready; the image is shown to them automatically.
Never invent data. Answers must come from tool output.`

// Orchestrator drives the chat loop: it gives the model the two query
// tools and lets it decide which one a question needs.
type Orchestrator struct {
	svc   ai.Service
	tools *QueryTools
}

func NewOrchestrator(svc ai.Service, tools *QueryTools) *Orchestrator {
	return &Orchestrator{svc: svc, tools: tools}
}

// toolDescriptors describes both tools to the model.
func toolDescriptors() []openai.Tool {
	queryParam := map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The user's natural language question, verbatim.",
		},
	}
	return []openai.Tool{
		ai.NewFunctionTool(ToolQueryReturningText,
			"Answer a question about accounting data with a textual record listing.",
			queryParam, []string{"query"}),
		ai.NewFunctionTool(ToolQueryReturningPlot,
			"Answer a question about accounting data with a rendered chart image.",
			queryParam, []string{"query"}),
	}
}

func (o *Orchestrator) handlers() map[string]ai.ToolHandler {
	return map[string]ai.ToolHandler{
		ToolQueryReturningText: {ReturnType: "text", Call: o.tools.QueryReturningText},
		ToolQueryReturningPlot: {ReturnType: "image", Call: o.tools.QueryReturningPlot},
	}
}

// Answer runs one user turn through the tool loop and returns the final
// completion, with any generated chart attached as Image.
func (o *Orchestrator) Answer(ctx context.Context, question string, history []openai.ChatCompletionMessage) (*ai.Completion, error) {
	return o.svc.CompleteWithTools(ctx, ai.ToolCompletionRequest{
		Messages: ai.FormatMessages(systemPrompt, question, history),
		Tools:    toolDescriptors(),
		Handlers: o.handlers(),
	})
}
