package ai

import (
	"log/slog"
	"math"
)

// ModelPricing holds the per-million-token rates for one model.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
	CachedPer1M float64
}

// pricing maps model identifiers to their published rates (USD).
var pricing = map[string]ModelPricing{
	"gpt-5.1": {
		InputPer1M:  1.25,
		OutputPer1M: 10.00,
		CachedPer1M: 0.125,
	},
	"gpt-5-nano": {
		InputPer1M:  0.05,
		OutputPer1M: 0.40,
		CachedPer1M: 0.005,
	},
	"gpt-4.1": {
		InputPer1M:  2.00,
		OutputPer1M: 8.00,
		CachedPer1M: 0.5,
	},
	"gpt-3.5-turbo": {
		InputPer1M:  0.50,
		OutputPer1M: 1.50,
		CachedPer1M: 0, // no cached-token pricing published
	},
}

// Usage is the token accounting for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	CachedTokens     int `json:"cached_tokens"`
}

// CostUnknown is returned when the model has no pricing entry.
const CostUnknown = -1.0

// ComputeCost returns the monetary cost of a request, rounded to 5 decimals.
// Models absent from the pricing table cost CostUnknown; callers treat that
// as "unpriced", not as an error.
func ComputeCost(model string, usage Usage) float64 {
	rates, ok := pricing[model]
	if !ok {
		slog.Warn("model not found in pricing table", "model", model)
		return CostUnknown
	}

	cost := rates.InputPer1M*(float64(usage.PromptTokens)/1e6) +
		rates.CachedPer1M*(float64(usage.CachedTokens)/1e6) +
		rates.OutputPer1M*(float64(usage.CompletionTokens)/1e6)

	return math.Round(cost*1e5) / 1e5
}
