package ai

import "testing"

func TestComputeCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage Usage
		want  float64
	}{
		{
			name:  "prompt tokens only",
			model: "gpt-3.5-turbo",
			usage: Usage{PromptTokens: 1000000},
			want:  0.50,
		},
		{
			name:  "mixed usage",
			model: "gpt-4.1",
			usage: Usage{PromptTokens: 500000, CompletionTokens: 250000, CachedTokens: 100000},
			want:  3.05, // 1.00 + 2.00 + 0.05
		},
		{
			name:  "rounded to five decimals",
			model: "gpt-5-nano",
			usage: Usage{PromptTokens: 123, CompletionTokens: 456},
			want:  0.00019,
		},
		{
			name:  "unlisted model",
			model: "???",
			usage: Usage{PromptTokens: 1000000, CompletionTokens: 1000000},
			want:  CostUnknown,
		},
		{
			name:  "unlisted model with zero usage",
			model: "llama-9",
			usage: Usage{},
			want:  CostUnknown,
		},
		{
			name:  "zero usage",
			model: "gpt-3.5-turbo",
			usage: Usage{},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeCost(tt.model, tt.usage); got != tt.want {
				t.Errorf("ComputeCost(%s, %+v) = %v, want %v", tt.model, tt.usage, got, tt.want)
			}
		})
	}
}

func TestAddCostSkipsUnknownSentinel(t *testing.T) {
	if got := addCost(1.5, CostUnknown); got != 1.5 {
		t.Errorf("addCost(1.5, sentinel) = %v, want 1.5", got)
	}
	if got := addCost(1.5, 0.25); got != 1.75 {
		t.Errorf("addCost(1.5, 0.25) = %v, want 1.75", got)
	}
}
