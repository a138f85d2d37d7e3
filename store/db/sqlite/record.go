package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/store"
)

// SearchRecords reads rows from one accounting table with validated
// conditions only. Table and field names never come from user input
// unchecked; they are validated here again as a second line of defense.
func (d *DB) SearchRecords(ctx context.Context, find *store.FindRecords) ([]map[string]any, error) {
	if !store.ValidIdentifier(find.Table) {
		return nil, errors.Errorf("invalid table name %q", find.Table)
	}

	where, args := []string{"1 = 1"}, []any{}
	for _, cond := range find.Conditions {
		if err := store.ValidateCondition(cond); err != nil {
			return nil, err
		}
		clause, err := conditionClause(cond, &args)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
	}

	query := "SELECT * FROM " + find.Table + " WHERE " + strings.Join(where, " AND ") + " ORDER BY id ASC"
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search records in %s", find.Table)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// conditionClause renders one condition into SQL, appending its bind values.
func conditionClause(cond store.RecordCondition, args *[]any) (string, error) {
	switch cond.Operator {
	case "in", "not in":
		values, ok := cond.Value.([]any)
		if !ok {
			return "", errors.Errorf("operator %q requires a list value", cond.Operator)
		}
		if len(values) == 0 {
			// An empty IN list matches nothing; an empty NOT IN matches everything.
			if cond.Operator == "in" {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		*args = append(*args, values...)
		keyword := "IN"
		if cond.Operator == "not in" {
			keyword = "NOT IN"
		}
		return cond.Field + " " + keyword + " (" + placeholders(len(values)) + ")", nil
	case "ilike":
		// SQLite has no ILIKE; fold both sides instead.
		*args = append(*args, cond.Value)
		return "LOWER(" + cond.Field + ") LIKE LOWER(" + placeholder(len(*args)) + ")", nil
	case "like":
		*args = append(*args, cond.Value)
		return cond.Field + " LIKE " + placeholder(len(*args)), nil
	default:
		if cond.Value == nil {
			if cond.Operator == "=" {
				return cond.Field + " IS NULL", nil
			}
			if cond.Operator == "!=" {
				return cond.Field + " IS NOT NULL", nil
			}
			return "", errors.Errorf("operator %q cannot compare against null", cond.Operator)
		}
		*args = append(*args, cond.Value)
		return cond.Field + " " + cond.Operator + " " + placeholder(len(*args)), nil
	}
}

// QueryRaw executes an already validated read-only SQL statement and returns
// column names with row values. Write statements are rejected upstream.
func (d *DB) QueryRaw(ctx context.Context, query string) ([]string, [][]any, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read columns")
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan row")
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate rows")
	}
	return columns, result, nil
}

// ResolveDisplayName returns the human readable name of one related record.
func (d *DB) ResolveDisplayName(ctx context.Context, table string, id int64) (string, error) {
	if !store.ValidIdentifier(table) {
		return "", errors.Errorf("invalid table name %q", table)
	}
	var name string
	err := d.db.QueryRowContext(ctx,
		"SELECT COALESCE(NULLIF(display_name, ''), name) FROM "+table+" WHERE id = "+placeholder(1), id,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve display name in %s", table)
	}
	return name, nil
}

func scanRecordRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			record[column] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate records")
	}
	return records, nil
}
