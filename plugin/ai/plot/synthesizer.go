package plot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai"
)

const synthesizerPrompt = `You are a tool that picks a chart for visualizing the result of a natural language query.
Respond with strict JSON of the shape {"type": "bar|line|pie", "title": "...", "x": "attribute", "y": "attribute"} and nothing else.
Rules:
- x is the attribute used for labels, y the numeric attribute being plotted.
- Both must come from the provided attribute list.
- Pick bar for comparisons, line for trends over time, pie for shares of a whole.`

// Result is a rendered chart plus the model cost of choosing it.
type Result struct {
	Image []byte
	Spec  *Spec
	Cost  float64
}

// Synthesize asks the model for a chart spec over the result attributes,
// validates it, and renders the chart from the records.
func Synthesize(ctx context.Context, svc ai.Service, question string, attributes []string, records []map[string]any) (*Result, error) {
	userContent := fmt.Sprintf("Query: %s\nData Attributes: %s", question, strings.Join(attributes, ", "))
	completion, err := svc.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.FormatMessages(synthesizerPrompt, userContent, nil),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to synthesize chart spec")
	}

	spec, err := ParseSpec(completion.Content, attributes)
	if err != nil {
		return nil, err
	}
	slog.Info("chart spec synthesized", "type", spec.Type, "x", spec.X, "y", spec.Y)

	image, err := Render(spec, records)
	if err != nil {
		return nil, err
	}
	return &Result{Image: image, Spec: spec, Cost: completion.Cost}, nil
}
