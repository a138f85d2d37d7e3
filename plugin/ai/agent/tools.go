// Package agent wires the question-answering tools into the chat loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/plugin/ai/catalog"
	"github.com/chartlyhq/chartly/plugin/ai/nlquery"
	"github.com/chartlyhq/chartly/plugin/ai/plot"
)

// Tool names as the model sees them.
const (
	ToolQueryReturningText = "query_returning_text"
	ToolQueryReturningPlot = "query_returning_plot"
)

// User-facing refusals. These are returned as the tool's answer, not as
// errors: the conversation continues normally around them.
const (
	restrictedRefusal = "Chartly only support integration with Invoicing/Accounting apps. Your query requires integration with other apps."
	multiModelRefusal = "Chartly only supports queries on a single Odoo model at a time. Please rephrase your query."
	unsafeRefusal     = "Your query contains unsafe operations that are not allowed."
	rephraseRefusal   = "Can you please rephrase your query? We were unable to understand it."

	noRecordsText = "No records"
)

// QueryTools executes natural language queries over the accounting data.
type QueryTools struct {
	svc      ai.Service
	store    nlquery.RecordStore
	strategy nlquery.Strategy
	rowLimit int
}

// NewQueryTools builds the tool set. rowLimit caps how many records a
// text answer lists.
func NewQueryTools(svc ai.Service, store nlquery.RecordStore, strategy nlquery.Strategy, rowLimit int) *QueryTools {
	if rowLimit <= 0 {
		rowLimit = 10
	}
	return &QueryTools{
		svc:      svc,
		store:    store,
		strategy: strategy,
		rowLimit: rowLimit,
	}
}

type toolArgs struct {
	Query string `json:"query"`
}

// queryResult is the shared outcome of the query pipeline. Exactly one of
// Refusal or Records is meaningful; Cost covers every model call made.
type queryResult struct {
	Refusal    string
	Records    []map[string]any
	Attributes []string
	Cost       float64
}

// run executes the full pipeline: resolve entities, translate, gate,
// execute, and filter attributes.
func (t *QueryTools) run(ctx context.Context, question string) (*queryResult, error) {
	result := &queryResult{}

	resolution, err := nlquery.ResolveEntities(ctx, t.svc, question)
	if err != nil {
		return nil, err
	}
	result.Cost += resolution.Cost
	if resolution.Flags.NotRestricted {
		result.Refusal = restrictedRefusal
		return result, nil
	}
	if len(resolution.Entities) == 0 {
		result.Refusal = rephraseRefusal
		return result, nil
	}

	var records []map[string]any
	switch t.strategy {
	case nlquery.StrategySQL:
		records, err = t.runSQL(ctx, question, resolution.Entities, result)
	default:
		records, err = t.runDomain(ctx, question, resolution.Entities, result)
	}
	if err != nil || result.Refusal != "" {
		return result, err
	}

	if len(records) == 0 {
		result.Refusal = noRecordsText
		return result, nil
	}

	attributes := recordAttributes(records)
	filter, err := nlquery.FilterAttributes(ctx, t.svc, question, attributes)
	if err != nil {
		return nil, err
	}
	result.Cost += filter.Cost
	result.Records = nlquery.ProjectRecords(records, filter.Attributes)
	result.Attributes = filter.Attributes
	return result, nil
}

func (t *QueryTools) runDomain(ctx context.Context, question string, entities []string, result *queryResult) ([]map[string]any, error) {
	if len(entities) > 1 {
		result.Refusal = multiModelRefusal
		return nil, nil
	}
	entity := entities[0]

	translation, err := nlquery.TranslateDomain(ctx, t.svc, question, entity, catalog.Fields(entity))
	if err != nil {
		return nil, err
	}
	result.Cost += translation.Cost
	if translation.Flags.NotSafe {
		result.Refusal = unsafeRefusal
		return nil, nil
	}
	if translation.Flags.NotFormatted {
		result.Refusal = rephraseRefusal
		return nil, nil
	}

	conditions, err := nlquery.ParseDomain(translation.Domain)
	if err != nil {
		slog.Info("domain did not parse, asking user to rephrase", "domain", translation.Domain, "error", err)
		result.Refusal = rephraseRefusal
		return nil, nil
	}
	conditions = nlquery.MakeHashable(conditions)

	return nlquery.Execute(ctx, t.store, entity, conditions, t.rowLimit)
}

func (t *QueryTools) runSQL(ctx context.Context, question string, entities []string, result *queryResult) ([]map[string]any, error) {
	fields := make(map[string][]string, len(entities))
	for _, entity := range entities {
		fields[entity] = catalog.Fields(entity)
	}

	translation, err := nlquery.TranslateSQL(ctx, t.svc, question, entities, fields)
	if err != nil {
		return nil, err
	}
	result.Cost += translation.Cost
	if translation.Flags.NotSafe {
		result.Refusal = unsafeRefusal
		return nil, nil
	}
	if translation.Flags.NotFormatted {
		result.Refusal = rephraseRefusal
		return nil, nil
	}

	return nlquery.ExecuteSQL(ctx, t.store, translation.Query)
}

// QueryReturningText answers a question with a numbered record listing.
func (t *QueryTools) QueryReturningText(ctx context.Context, args json.RawMessage) (*ai.ToolResult, error) {
	var parsed toolArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return nil, errors.Wrap(err, "invalid tool arguments")
	}

	result, err := t.run(ctx, parsed.Query)
	if err != nil {
		return nil, err
	}
	if result.Refusal != "" {
		return &ai.ToolResult{Text: result.Refusal, Cost: result.Cost}, nil
	}
	return &ai.ToolResult{
		Text: formatRecordList(result.Records, result.Attributes, t.rowLimit),
		Cost: result.Cost,
	}, nil
}

// QueryReturningPlot answers a question with a rendered chart. The chart
// image travels out of band; the text summarizes what was drawn.
func (t *QueryTools) QueryReturningPlot(ctx context.Context, args json.RawMessage) (*ai.ToolResult, error) {
	var parsed toolArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return nil, errors.Wrap(err, "invalid tool arguments")
	}

	result, err := t.run(ctx, parsed.Query)
	if err != nil {
		return nil, err
	}
	if result.Refusal != "" {
		return &ai.ToolResult{Text: result.Refusal, Cost: result.Cost}, nil
	}

	rendered, err := plot.Synthesize(ctx, t.svc, parsed.Query, result.Attributes, result.Records)
	if err != nil {
		return nil, err
	}
	return &ai.ToolResult{
		Text:  fmt.Sprintf("Generated a %s chart titled %q from %d records.", rendered.Spec.Type, rendered.Spec.Title, len(result.Records)),
		Image: rendered.Image,
		Cost:  result.Cost + rendered.Cost,
	}, nil
}

// recordAttributes collects attribute names over all records in a
// stable sorted order.
func recordAttributes(records []map[string]any) []string {
	seen := make(map[string]bool)
	var attributes []string
	for _, record := range records {
		for attr := range record {
			if !seen[attr] {
				seen[attr] = true
				attributes = append(attributes, attr)
			}
		}
	}
	sort.Strings(attributes)
	return attributes
}

// formatRecordList renders records as a numbered list, one per line,
// capped at limit entries.
func formatRecordList(records []map[string]any, attributes []string, limit int) string {
	var b strings.Builder
	count := len(records)
	if count > limit {
		count = limit
	}
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "%d. ", i+1)
		first := true
		for _, attr := range attributes {
			value, ok := records[i][attr]
			if !ok {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", attr, formatValue(value))
			first = false
		}
		b.WriteString("\n")
	}
	if len(records) > limit {
		fmt.Fprintf(&b, "... and %d more records\n", len(records)-limit)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatValue(value any) string {
	if related, ok := value.(map[string]any); ok {
		if name, ok := related["display_name"].(string); ok {
			return name
		}
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
