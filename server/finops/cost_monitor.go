// Package finops tracks what answering questions costs.
package finops

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/store"
)

// CostStore is the slice of the store the monitor needs.
type CostStore interface {
	CreateCostLog(ctx context.Context, create *store.CostLog) error
	SumCostSince(ctx context.Context, sinceTs int64) (float64, error)
}

// CostMonitor records per-turn LLM spend and reports aggregates.
type CostMonitor struct {
	store  CostStore
	logger *slog.Logger
}

// Report is the aggregate spend over a period.
type Report struct {
	Period    string  `json:"period"`
	TotalCost float64 `json:"totalCost"`
}

func NewCostMonitor(store CostStore) *CostMonitor {
	return &CostMonitor{
		store:  store,
		logger: slog.Default(),
	}
}

// Record persists the cost of one handled turn.
func (m *CostMonitor) Record(ctx context.Context, record *store.CostLog) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if record.Cost < 0 {
		// The unknown-pricing sentinel and negative costs are recorded as
		// zero spend so aggregates stay meaningful.
		m.logger.WarnContext(ctx, "cost record carries unknown pricing",
			"model", record.Model,
			"tool", record.Tool)
		record.Cost = 0
	}

	if err := m.store.CreateCostLog(ctx, record); err != nil {
		m.logger.ErrorContext(ctx, "failed to record query cost",
			"tool", record.Tool,
			"error", err)
		return err
	}

	m.logger.DebugContext(ctx, "recorded query cost",
		"tool", record.Tool,
		"model", record.Model,
		"cost", record.Cost)
	return nil
}

// GetReport aggregates spend since the start of the given period.
// Supported periods: daily, weekly, monthly. Unknown periods fall back
// to daily.
func (m *CostMonitor) GetReport(ctx context.Context, period string) (*Report, error) {
	start := periodStart(period)
	total, err := m.store.SumCostSince(ctx, start.Unix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to build cost report")
	}
	return &Report{Period: period, TotalCost: total}, nil
}

func periodStart(period string) time.Time {
	now := time.Now()
	switch period {
	case "weekly", "this_week":
		return now.AddDate(0, 0, -7)
	case "monthly", "this_month":
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(0, 0, -1)
	}
}
