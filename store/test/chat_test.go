package test

import (
	"context"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/chartlyhq/chartly/store"
)

func TestChatSessionStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session, err := ts.CreateChatSession(ctx, &store.ChatSession{
		UID:   shortuuid.New(),
		Title: "Revenue questions",
	})
	require.NoError(t, err)
	require.NotZero(t, session.ID)
	require.NotZero(t, session.CreatedTs)

	found, err := ts.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, session.ID, found.ID)
	require.Equal(t, "Revenue questions", found.Title)

	newTitle := "Q3 revenue questions"
	updated, err := ts.UpdateChatSession(ctx, &store.UpdateChatSession{ID: session.ID, Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)

	err = ts.DeleteChatSession(ctx, &store.DeleteChatSession{ID: session.ID})
	require.NoError(t, err)

	gone, err := ts.GetChatSession(ctx, &store.FindChatSession{ID: &session.ID})
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestChatMessageStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session, err := ts.CreateChatSession(ctx, &store.ChatSession{
		UID:   shortuuid.New(),
		Title: "Invoices",
	})
	require.NoError(t, err)

	_, err = ts.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Sender:    store.SenderUser,
		Content:   "How many invoices are overdue?",
	})
	require.NoError(t, err)

	aiMessage, err := ts.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Sender:    store.SenderAI,
		Content:   "There are 2 overdue invoices.",
		Cost:      0.00125,
		Image:     []byte{0x89, 0x50, 0x4e, 0x47},
		PlotTag:   "plot-abc",
	})
	require.NoError(t, err)
	require.True(t, aiMessage.HasImage)

	messages, err := ts.ListChatMessages(ctx, &store.FindChatMessage{SessionID: &session.ID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, store.SenderUser, messages[0].Sender)
	require.Equal(t, store.SenderAI, messages[1].Sender)
	require.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, messages[1].Image)
	require.Equal(t, "plot-abc", messages[1].PlotTag)

	stats, err := ts.GetChatSessionStats(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.MessageCount)
	require.InDelta(t, 0.00125, stats.TotalCost, 1e-9)

	// Deleting the session cascades to its messages.
	err = ts.DeleteChatSession(ctx, &store.DeleteChatSession{ID: session.ID})
	require.NoError(t, err)
	messages, err = ts.ListChatMessages(ctx, &store.FindChatMessage{SessionID: &session.ID})
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestCostLogStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	err := ts.CreateCostLog(ctx, &store.CostLog{
		Ts:               1000,
		Tool:             "query_returning_text",
		Model:            "gpt-4.1",
		PromptTokens:     1200,
		CompletionTokens: 80,
		Cost:             0.00304,
	})
	require.NoError(t, err)
	err = ts.CreateCostLog(ctx, &store.CostLog{
		Ts:    2000,
		Tool:  "query_returning_plot",
		Model: "gpt-4.1",
		Cost:  0.001,
	})
	require.NoError(t, err)

	total, err := ts.SumCostSince(ctx, 0)
	require.NoError(t, err)
	require.InDelta(t, 0.00404, total, 1e-9)

	recent, err := ts.SumCostSince(ctx, 1500)
	require.NoError(t, err)
	require.InDelta(t, 0.001, recent, 1e-9)
}
