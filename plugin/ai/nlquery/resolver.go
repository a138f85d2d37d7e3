package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/plugin/ai/catalog"
)

// Resolution is the outcome of mapping a question to accounting entities.
type Resolution struct {
	Entities []string
	Flags    Flags
	Cost     float64
}

// ResolveEntities asks the model which accounting entities a question
// needs and checks every one against the allow-list. A single entity
// outside the list marks the whole resolution restricted.
func ResolveEntities(ctx context.Context, svc ai.Service, question string) (*Resolution, error) {
	completion, err := svc.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.FormatMessages(resolverPrompt, fmt.Sprintf("Query: %s", question), nil),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve entities")
	}

	var parsed struct {
		Models []string `json:"models"`
	}
	content := StripCodeFence(completion.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.Wrapf(err, "entity resolution returned malformed JSON: %s", content)
	}

	resolution := &Resolution{
		Entities: parsed.Models,
		Cost:     completion.Cost,
	}
	for _, entity := range parsed.Models {
		if !catalog.IsAllowed(entity) {
			slog.Info("question resolved to restricted entity", "entity", entity)
			resolution.Flags.NotRestricted = true
			break
		}
	}
	return resolution, nil
}
