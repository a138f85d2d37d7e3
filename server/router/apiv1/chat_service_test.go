package apiv1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/plugin/ai/agent"
	"github.com/chartlyhq/chartly/plugin/ai/nlquery"
	"github.com/chartlyhq/chartly/server/finops"
	"github.com/chartlyhq/chartly/store/test"
)

type mockAIService struct {
	mock.Mock
}

func (m *mockAIService) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

func (m *mockAIService) CompleteWithTools(ctx context.Context, req ai.ToolCompletionRequest) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

func newTestService(t *testing.T, svc ai.Service) (*echo.Echo, *APIV1Service) {
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)

	tools := agent.NewQueryTools(svc, ts, nlquery.StrategyDomain, 10)
	orchestrator := agent.NewOrchestrator(svc, tools)
	monitor := finops.NewCostMonitor(ts)

	service := NewAPIV1Service(&profile.Profile{Mode: "demo"}, ts, orchestrator, monitor)
	e := echo.New()
	service.RegisterRoutes(e)
	return e, service
}

func doRequest(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatSessionLifecycle(t *testing.T) {
	e, _ := newTestService(t, &mockAIService{})

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", sessionRequest{Title: "Revenue questions"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.UID)
	require.Equal(t, "Revenue questions", created.Title)
	require.Zero(t, created.MessageCount)

	rec = doRequest(e, http.MethodGet, "/api/v1/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)

	rec = doRequest(e, http.MethodPatch, "/api/v1/chats/"+created.UID, sessionRequest{Title: "Q3 revenue"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Q3 revenue", updated.Title)

	rec = doRequest(e, http.MethodGet, "/api/v1/chats/"+created.UID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/chats/"+created.UID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/chats/"+created.UID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateChatSessionDefaultTitle(t *testing.T) {
	e, _ := newTestService(t, &mockAIService{})

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, defaultSessionTitle, created.Title)
}

func TestUpdateChatSessionRequiresTitle(t *testing.T) {
	e, _ := newTestService(t, &mockAIService{})

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(e, http.MethodPatch, "/api/v1/chats/"+created.UID, sessionRequest{Title: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendChatMessage(t *testing.T) {
	svc := &mockAIService{}
	svc.On("CompleteWithTools", mock.Anything, mock.Anything).Return(&ai.Completion{
		Content: "You have 3 customers.",
		Model:   "gpt-5-nano",
		Cost:    0.004,
		Usage:   ai.Usage{PromptTokens: 120, CompletionTokens: 30},
	}, nil)

	e, _ := newTestService(t, svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: "How many customers do we have?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ai", resp.Message.Sender)
	require.Equal(t, "You have 3 customers.", resp.Message.Content)
	require.InDelta(t, 0.004, resp.Message.Cost, 1e-9)
	require.False(t, resp.Message.HasImage)
	require.Equal(t, "How many customers do we have?", resp.Title)

	rec = doRequest(e, http.MethodGet, "/api/v1/chats/"+session.UID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	require.Equal(t, "user", messages[0].Sender)
	require.Equal(t, "ai", messages[1].Sender)

	rec = doRequest(e, http.MethodGet, "/api/v1/costs/report?period=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report finops.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.InDelta(t, 0.004, report.TotalCost, 1e-9)

	svc.AssertExpectations(t)
}

func TestSendChatMessageDerivesLongTitle(t *testing.T) {
	svc := &mockAIService{}
	svc.On("CompleteWithTools", mock.Anything, mock.Anything).Return(&ai.Completion{
		Content: "Done.",
		Model:   "gpt-5-nano",
	}, nil)

	e, _ := newTestService(t, svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	question := strings.Repeat("show me all unpaid invoices ", 4)
	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: question})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasSuffix(resp.Title, "..."))
	require.Len(t, resp.Title, titleMaxLen+3)
}

func TestSendChatMessageTitleKeepsMultiByteRunes(t *testing.T) {
	svc := &mockAIService{}
	svc.On("CompleteWithTools", mock.Anything, mock.Anything).Return(&ai.Completion{
		Content: "Fertig.",
		Model:   "gpt-5-nano",
	}, nil)

	e, _ := newTestService(t, svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	question := strings.Repeat("Überfällige Rechnungen größer 100€ ", 3)
	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: question})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, utf8.ValidString(resp.Title))
	require.True(t, strings.HasSuffix(resp.Title, "..."))
	require.Equal(t, titleMaxLen, utf8.RuneCountInString(strings.TrimSuffix(resp.Title, "...")))
}

func TestSendChatMessageWithImage(t *testing.T) {
	pngBytes := append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake-image-data")...)

	svc := &mockAIService{}
	svc.On("CompleteWithTools", mock.Anything, mock.Anything).Return(&ai.Completion{
		Content: "The chart is ready.",
		Model:   "gpt-5-nano",
		Cost:    0.006,
		Image:   pngBytes,
	}, nil)

	e, _ := newTestService(t, svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: "Plot revenue by customer"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Message.HasImage)
	require.NotEmpty(t, resp.Message.PlotTag)
	require.Contains(t, resp.Message.Content, "<PLOT_TAG:"+resp.Message.PlotTag+">")

	rec = doRequest(e, http.MethodGet, "/api/v1/messages/"+resp.Message.UID+"/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestSendChatMessageDegradesOnAgentFailure(t *testing.T) {
	svc := &mockAIService{}
	svc.On("CompleteWithTools", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider unavailable"))

	e, _ := newTestService(t, svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: "How many customers do we have?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ai", resp.Message.Sender)
	require.Contains(t, resp.Message.Content, "something went wrong")
	require.Zero(t, resp.Message.Cost)

	rec = doRequest(e, http.MethodGet, "/api/v1/chats/"+session.UID+"/messages", nil)
	var messages []messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
}

func TestSendChatMessageRequiresContent(t *testing.T) {
	e, _ := newTestService(t, &mockAIService{})

	rec := doRequest(e, http.MethodPost, "/api/v1/chats", nil)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doRequest(e, http.MethodPost, "/api/v1/chats/"+session.UID+"/messages",
		messageRequest{Content: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatMessageImageNotFound(t *testing.T) {
	e, _ := newTestService(t, &mockAIService{})

	rec := doRequest(e, http.MethodGet, "/api/v1/messages/no-such-uid/image", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
