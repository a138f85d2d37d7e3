package nlquery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/store"
)

// MockService implements ai.Service for testing.
type MockService struct {
	mock.Mock
}

func (m *MockService) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

func (m *MockService) CompleteWithTools(ctx context.Context, req ai.ToolCompletionRequest) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

// fakeRecordStore is a canned-data RecordStore.
type fakeRecordStore struct {
	records      []map[string]any
	searchErr    error
	columns      []string
	rows         [][]any
	displayNames map[string]string

	lastFind *store.FindRecords
}

func (f *fakeRecordStore) SearchRecords(_ context.Context, find *store.FindRecords) ([]map[string]any, error) {
	f.lastFind = find
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.records, nil
}

func (f *fakeRecordStore) QueryRaw(context.Context, string) ([]string, [][]any, error) {
	return f.columns, f.rows, nil
}

func (f *fakeRecordStore) ResolveDisplayName(_ context.Context, table string, _ int64) (string, error) {
	return f.displayNames[table], nil
}
