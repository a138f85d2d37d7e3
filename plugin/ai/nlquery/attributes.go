package nlquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai"
)

// AttributeFilter is the outcome of narrowing result columns to the ones
// a chat answer actually needs.
type AttributeFilter struct {
	Attributes []string
	Cost       float64
}

const attributeFilterPreamble = "You are a tool designed to filter out unuseful attributes returned from executing a query for a natural language question."

// FilterAttributes asks the model which result columns matter for the
// question. Unknown names in the answer are dropped; an empty answer
// falls back to all attributes.
func FilterAttributes(ctx context.Context, svc ai.Service, question string, attributes []string) (*AttributeFilter, error) {
	var prompt strings.Builder
	prompt.WriteString(attributeFilterPreamble + "\n")
	fmt.Fprintf(&prompt, "The query: %s\n", question)
	fmt.Fprintf(&prompt, "The attributes: %s\n", strings.Join(attributes, ", "))
	prompt.WriteString("Only return the useful attributes as a list separated by new lines.\n")
	prompt.WriteString("Useful attributes are the ones needed to answer the query in a chat setting.\n")
	prompt.WriteString("The more concise the better, because we are in a chat application.")

	completion, err := svc.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.FormatMessages("", prompt.String(), nil),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to filter attributes")
	}

	known := make(map[string]bool, len(attributes))
	for _, attr := range attributes {
		known[attr] = true
	}

	var kept []string
	for _, line := range strings.Split(StripCodeFence(completion.Content), "\n") {
		attr := strings.Trim(strings.TrimSpace(line), "-* ")
		if known[attr] {
			kept = append(kept, attr)
		}
	}
	if len(kept) == 0 {
		kept = attributes
	}
	return &AttributeFilter{Attributes: kept, Cost: completion.Cost}, nil
}

// ProjectRecords keeps only the given attributes of each record, in place
// of the full row.
func ProjectRecords(records []map[string]any, attributes []string) []map[string]any {
	projected := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(attributes))
		for _, attr := range attributes {
			if value, ok := record[attr]; ok {
				row[attr] = value
			}
		}
		projected = append(projected, row)
	}
	return projected
}
