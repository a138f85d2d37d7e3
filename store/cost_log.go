package store

// CostLog is one recorded LLM spend entry, written once per handled turn.
type CostLog struct {
	ID               int32
	Ts               int64
	SessionID        int32
	Tool             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	Cost             float64
}
