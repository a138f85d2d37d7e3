// Package store provides database access to all raw objects.
package store

import (
	"context"

	"github.com/chartlyhq/chartly/internal/profile"
)

// Store provides database access to chat sessions, chat messages and the
// read-only accounting tables.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the single matching session, or nil when absent.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	sessions, err := s.driver.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	return s.driver.UpdateChatSession(ctx, update)
}

func (s *Store) DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error {
	return s.driver.DeleteChatSession(ctx, delete)
}

func (s *Store) GetChatSessionStats(ctx context.Context, sessionID int32) (*ChatSessionStats, error) {
	return s.driver.GetChatSessionStats(ctx, sessionID)
}

func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

func (s *Store) SearchRecords(ctx context.Context, find *FindRecords) ([]map[string]any, error) {
	return s.driver.SearchRecords(ctx, find)
}

func (s *Store) QueryRaw(ctx context.Context, query string) ([]string, [][]any, error) {
	return s.driver.QueryRaw(ctx, query)
}

func (s *Store) ResolveDisplayName(ctx context.Context, table string, id int64) (string, error) {
	return s.driver.ResolveDisplayName(ctx, table, id)
}

func (s *Store) CreateCostLog(ctx context.Context, create *CostLog) error {
	return s.driver.CreateCostLog(ctx, create)
}

func (s *Store) SumCostSince(ctx context.Context, sinceTs int64) (float64, error) {
	return s.driver.SumCostSince(ctx, sinceTs)
}
