package nlquery

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/plugin/ai/catalog"
	"github.com/chartlyhq/chartly/store"
)

// RecordStore is the slice of the store the executor needs.
type RecordStore interface {
	SearchRecords(ctx context.Context, find *store.FindRecords) ([]map[string]any, error)
	QueryRaw(ctx context.Context, query string) ([]string, [][]any, error)
	ResolveDisplayName(ctx context.Context, table string, id int64) (string, error)
}

// Execute runs a validated domain query against one entity and normalizes
// the result rows: relational ids become {id, display_name} pairs, times
// become formatted strings, and only catalog fields survive.
func Execute(ctx context.Context, st RecordStore, entity string, conditions []store.RecordCondition, limit int) ([]map[string]any, error) {
	records, err := st.SearchRecords(ctx, &store.FindRecords{
		Table:      catalog.TableName(entity),
		Conditions: conditions,
		Limit:      limit,
	})
	if err != nil {
		return []map[string]any{}, errors.Wrapf(err, "failed to execute query on %s", entity)
	}
	slog.Info("domain query executed", "entity", entity, "records", len(records))

	fields := catalog.Fields(entity)
	normalized := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(fields))
		for _, field := range fields {
			value, ok := record[field]
			if !ok {
				continue
			}
			row[field] = normalizeFieldValue(ctx, st, field, value)
		}
		if len(fields) == 0 {
			for field, value := range record {
				row[field] = normalizeFieldValue(ctx, st, field, value)
			}
		}
		normalized = append(normalized, row)
	}
	return normalized, nil
}

// normalizeFieldValue renders one column value for model consumption.
func normalizeFieldValue(ctx context.Context, st RecordStore, field string, value any) any {
	if value == nil {
		return nil
	}

	if target, ok := catalog.RelationTarget(field); ok {
		if id, ok := asInt64(value); ok {
			name, err := st.ResolveDisplayName(ctx, catalog.TableName(target), id)
			if err != nil {
				slog.Warn("failed to resolve display name", "field", field, "id", id, "error", err)
				return map[string]any{"id": id}
			}
			return map[string]any{"id": id, "display_name": name}
		}
	}

	if t, ok := value.(time.Time); ok {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	}
	return value
}

// ExecuteSQL runs a validated SELECT statement and zips the result into
// one map per row.
func ExecuteSQL(ctx context.Context, st RecordStore, query string) ([]map[string]any, error) {
	columns, rows, err := st.QueryRaw(ctx, query)
	if err != nil {
		return []map[string]any{}, errors.Wrap(err, "failed to execute SQL query")
	}
	slog.Info("SQL query executed", "records", len(rows))

	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), v == float64(int64(v))
	default:
		return 0, false
	}
}
