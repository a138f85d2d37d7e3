package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// ChatSession model related methods.
	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error
	GetChatSessionStats(ctx context.Context, sessionID int32) (*ChatSessionStats, error)

	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)

	// Accounting record read methods.
	SearchRecords(ctx context.Context, find *FindRecords) ([]map[string]any, error)
	QueryRaw(ctx context.Context, query string) ([]string, [][]any, error)
	ResolveDisplayName(ctx context.Context, table string, id int64) (string, error)

	// Cost log related methods.
	CreateCostLog(ctx context.Context, create *CostLog) error
	SumCostSince(ctx context.Context, sinceTs int64) (float64, error)
}
