package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/store"
)

func (d *DB) CreateCostLog(ctx context.Context, create *store.CostLog) error {
	if create.Ts == 0 {
		create.Ts = time.Now().Unix()
	}
	fields := []string{"ts", "session_id", "tool", "model", "prompt_tokens", "completion_tokens", "cached_tokens", "cost"}
	args := []any{create.Ts, create.SessionID, create.Tool, create.Model, create.PromptTokens, create.CompletionTokens, create.CachedTokens, create.Cost}

	stmt := "INSERT INTO query_cost_log (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(0, len(args)) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to create query_cost_log")
	}
	return nil
}

func (d *DB) SumCostSince(ctx context.Context, sinceTs int64) (float64, error) {
	var total float64
	err := d.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(cost), 0) FROM query_cost_log WHERE ts >= "+placeholder(1),
		sinceTs,
	).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum query_cost_log")
	}
	return total, nil
}
