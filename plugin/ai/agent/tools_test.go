package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/plugin/ai/nlquery"
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

// fakeRecordStore serves canned accounting rows.
type fakeRecordStore struct {
	records      []map[string]any
	displayNames map[string]string
}

func (f *fakeRecordStore) SearchRecords(context.Context, *store.FindRecords) ([]map[string]any, error) {
	return f.records, nil
}

func (f *fakeRecordStore) QueryRaw(context.Context, string) ([]string, [][]any, error) {
	return nil, nil, nil
}

func (f *fakeRecordStore) ResolveDisplayName(_ context.Context, table string, _ int64) (string, error) {
	return f.displayNames[table], nil
}

func completion(content string, cost float64) *ai.Completion {
	return &ai.Completion{Content: content, Cost: cost, Model: "gpt-4.1"}
}

func textArgs(t *testing.T, question string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"query": question})
	require.NoError(t, err)
	return raw
}

func TestQueryReturningText(t *testing.T) {
	ctx := context.Background()

	t.Run("lists customers", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[('customer_rank', '>', 0)]"}`, 0.002), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion("name\nemail", 0.0005), nil).Once()

		st := &fakeRecordStore{records: []map[string]any{
			{"id": int64(1), "name": "Azure Interior", "email": "azure@example.com", "customer_rank": int64(4)},
			{"id": int64(2), "name": "Deco Addict", "email": "deco@example.com", "customer_rank": int64(2)},
			{"id": int64(3), "name": "Gemini Furniture", "email": "gemini@example.com", "customer_rank": int64(1)},
		}}
		tools := NewQueryTools(svc, st, nlquery.StrategyDomain, 10)

		result, err := tools.QueryReturningText(ctx, textArgs(t, "List all customers"))
		require.NoError(t, err)
		assert.Equal(t,
			"1. name: Azure Interior, email: azure@example.com\n"+
				"2. name: Deco Addict, email: deco@example.com\n"+
				"3. name: Gemini Furniture, email: gemini@example.com",
			result.Text)
		assert.InDelta(t, 0.0035, result.Cost, 1e-9)
		svc.AssertExpectations(t)
	})

	t.Run("restricted entity refusal", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["hr.employee"]}`, 0.001), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategyDomain, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "List all employees"))
		require.NoError(t, err)
		assert.Equal(t, restrictedRefusal, result.Text)
		// The refusal is an answer, not a failure, and still carries its cost.
		assert.InDelta(t, 0.001, result.Cost, 1e-9)
	})

	t.Run("multiple entities refusal", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner", "account.move"]}`, 0.001), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategyDomain, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "Join customers with invoices"))
		require.NoError(t, err)
		assert.Equal(t, multiModelRefusal, result.Text)
	})

	t.Run("unsafe domain refusal", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[unlink()]"}`, 0.002), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategyDomain, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "Delete all customers"))
		require.NoError(t, err)
		assert.Equal(t, unsafeRefusal, result.Text)
	})

	t.Run("unparseable domain asks for a rephrase", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[nonsense here]"}`, 0.002), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategyDomain, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "gibberish"))
		require.NoError(t, err)
		assert.Equal(t, rephraseRefusal, result.Text)
	})

	t.Run("zero rows terminal before attribute filter", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[('customer_rank', '>', 100)]"}`, 0.002), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategyDomain, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "List mega customers"))
		require.NoError(t, err)
		assert.Equal(t, noRecordsText, result.Text)
		// Only two completions were made: the attribute filter never ran.
		svc.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("sql with comment sequence refused as unsafe", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["account.move"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion("select id from account_move -- and more", 0.002), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategySQL, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "Show invoices"))
		require.NoError(t, err)
		assert.Equal(t, unsafeRefusal, result.Text)
	})

	t.Run("malformed sql asks for a rephrase", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["account.move"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion("with t as (select 1) select * from t", 0.002), nil).Once()

		tools := NewQueryTools(svc, &fakeRecordStore{}, nlquery.StrategySQL, 10)
		result, err := tools.QueryReturningText(ctx, textArgs(t, "Show invoices"))
		require.NoError(t, err)
		assert.Equal(t, rephraseRefusal, result.Text)
	})

	t.Run("row limit caps the listing", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["res.partner"]}`, 0.001), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[]"}`, 0.002), nil).Once()
		svc.On("Complete", ctx, mock.Anything).Return(completion("name", 0.0005), nil).Once()

		st := &fakeRecordStore{records: []map[string]any{
			{"name": "A"}, {"name": "B"}, {"name": "C"},
		}}
		tools := NewQueryTools(svc, st, nlquery.StrategyDomain, 2)

		result, err := tools.QueryReturningText(ctx, textArgs(t, "List partners"))
		require.NoError(t, err)
		assert.Equal(t, "1. name: A\n2. name: B\n... and 1 more records", result.Text)
	})
}

func TestQueryReturningPlot(t *testing.T) {
	ctx := context.Background()

	svc := new(MockService)
	svc.On("Complete", ctx, mock.Anything).Return(completion(`{"models": ["account.move"]}`, 0.001), nil).Once()
	svc.On("Complete", ctx, mock.Anything).Return(completion(`{"domain": "[('move_type', '=', 'out_invoice')]"}`, 0.002), nil).Once()
	svc.On("Complete", ctx, mock.Anything).Return(completion("name\namount_total", 0.0005), nil).Once()
	svc.On("Complete", ctx, mock.Anything).Return(completion(`{"type": "bar", "title": "Invoice totals", "x": "name", "y": "amount_total"}`, 0.0015), nil).Once()

	st := &fakeRecordStore{records: []map[string]any{
		{"id": int64(1), "name": "INV/2026/00001", "amount_total": 1013.15},
		{"id": int64(2), "name": "INV/2026/00002", "amount_total": 736.0},
	}}
	tools := NewQueryTools(svc, st, nlquery.StrategyDomain, 10)

	result, err := tools.QueryReturningPlot(ctx, textArgs(t, "Plot invoice totals"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(result.Image, []byte{0x89, 'P', 'N', 'G'}), "plot tool must return a PNG")
	assert.Contains(t, result.Text, "bar")
	assert.InDelta(t, 0.005, result.Cost, 1e-9)
	svc.AssertExpectations(t)
}
