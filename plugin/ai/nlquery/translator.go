package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai"
)

// Strategy selects how natural language is translated into a query.
type Strategy string

const (
	StrategyDomain Strategy = "domain"
	StrategySQL    Strategy = "sql"
)

// DomainTranslation is a rendered domain filter plus its gate outcome.
type DomainTranslation struct {
	Entity string
	Domain string
	Flags  Flags
	Cost   float64
}

// SQLTranslation is a generated SQL statement plus its gate outcome.
type SQLTranslation struct {
	Query string
	Flags Flags
	Cost  float64
}

// TranslateDomain asks the model for a domain filter over one entity and
// runs every safety gate over the result.
func TranslateDomain(ctx context.Context, svc ai.Service, question, entity string, fields []string) (*DomainTranslation, error) {
	userContent := fmt.Sprintf("Model: %s\nQuery: %s\nFields: %s", entity, question, strings.Join(fields, ", "))
	completion, err := svc.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.FormatMessages(domainPrompt, userContent, nil),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to translate question to domain")
	}

	domain, err := extractDomain(completion.Content)
	if err != nil {
		return nil, err
	}

	translation := &DomainTranslation{
		Entity: entity,
		Domain: domain,
		Flags:  CheckDomain(domain),
		Cost:   completion.Cost,
	}
	if !translation.Flags.Ok() {
		slog.Info("domain translation tripped a gate",
			"entity", entity,
			"not_safe", translation.Flags.NotSafe,
			"not_formatted", translation.Flags.NotFormatted)
	}
	return translation, nil
}

// extractDomain pulls the domain string out of model output. The expected
// shape is {"domain": "..."}; some models answer with {"Model": ...,
// "Query": ...} instead, whose Query field carries the filter.
func extractDomain(content string) (string, error) {
	stripped := StripCodeFence(content)

	var expected struct {
		Domain *string `json:"domain"`
	}
	if err := json.Unmarshal([]byte(stripped), &expected); err == nil && expected.Domain != nil {
		return *expected.Domain, nil
	}

	var alternate struct {
		Model *string `json:"Model"`
		Query *string `json:"Query"`
	}
	if err := json.Unmarshal([]byte(stripped), &alternate); err == nil && alternate.Query != nil {
		return *alternate.Query, nil
	}

	// A bare bracketed list with no JSON wrapper at all.
	if strings.HasPrefix(stripped, "[") && strings.HasSuffix(stripped, "]") {
		return stripped, nil
	}
	return "", errors.Errorf("domain translation returned unrecognized output: %s", stripped)
}

// TranslateSQL asks the model for one SELECT statement over the given
// entities and runs the read-only gates over the result.
func TranslateSQL(ctx context.Context, svc ai.Service, question string, entities []string, fields map[string][]string) (*SQLTranslation, error) {
	var schema strings.Builder
	for _, entity := range entities {
		fmt.Fprintf(&schema, "# %s: %s\n", entity, strings.Join(fields[entity], ", "))
	}
	userContent := fmt.Sprintf("Models: %s\nFields:\n%s\nQuery: %s", strings.Join(entities, ", "), schema.String(), question)

	completion, err := svc.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.FormatMessages(sqlPrompt, userContent, nil),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to translate question to SQL")
	}

	query := StripCodeFence(completion.Content)
	translation := &SQLTranslation{
		Query: query,
		Flags: CheckSQL(query),
		Cost:  completion.Cost,
	}
	if !translation.Flags.Ok() {
		slog.Info("SQL translation tripped a gate",
			"not_safe", translation.Flags.NotSafe,
			"not_formatted", translation.Flags.NotFormatted)
	}
	return translation, nil
}
