package apiv1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/store"
)

const (
	defaultSessionTitle = "New Chat"

	// titleMaxLen caps session titles derived from the first question.
	titleMaxLen = 50
)

type sessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	UID          string  `json:"uid"`
	Title        string  `json:"title"`
	CreatedTs    int64   `json:"createdTs"`
	MessageCount int     `json:"messageCount"`
	TotalCost    float64 `json:"totalCost"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	UID       string  `json:"uid"`
	Sender    string  `json:"sender"`
	Content   string  `json:"content"`
	Cost      float64 `json:"cost"`
	HasImage  bool    `json:"hasImage"`
	PlotTag   string  `json:"plotTag,omitempty"`
	CreatedTs int64   `json:"createdTs"`
}

type sendMessageResponse struct {
	Message messageResponse `json:"message"`
	Title   string          `json:"title"`
}

func (s *APIV1Service) listChatSessions(c echo.Context) error {
	ctx := c.Request().Context()
	sessions, err := s.Store.ListChatSessions(ctx, &store.FindChatSession{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		stats, err := s.Store.GetChatSessionStats(ctx, session.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		resp = append(resp, toSessionResponse(session, stats))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) createChatSession(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		req.Title = defaultSessionTitle
	}

	session, err := s.Store.CreateChatSession(c.Request().Context(), &store.ChatSession{
		UID:   shortuuid.New(),
		Title: req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session, &store.ChatSessionStats{}))
}

func (s *APIV1Service) getChatSession(c echo.Context) error {
	ctx := c.Request().Context()
	session, err := s.findSession(c)
	if err != nil {
		return err
	}
	stats, err := s.Store.GetChatSessionStats(ctx, session.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toSessionResponse(session, stats))
}

func (s *APIV1Service) updateChatSession(c echo.Context) error {
	session, err := s.findSession(c)
	if err != nil {
		return err
	}

	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}

	updated, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		ID:    session.ID,
		Title: &req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	stats, err := s.Store.GetChatSessionStats(c.Request().Context(), updated.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toSessionResponse(updated, stats))
}

func (s *APIV1Service) deleteChatSession(c echo.Context) error {
	session, err := s.findSession(c)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteChatSession(c.Request().Context(), &store.DeleteChatSession{ID: session.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) listChatMessages(c echo.Context) error {
	session, err := s.findSession(c)
	if err != nil {
		return err
	}
	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{SessionID: &session.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, toMessageResponse(message))
	}
	return c.JSON(http.StatusOK, resp)
}

// sendChatMessage handles one user turn: it persists the question, runs
// the agent, and persists the answer with its cost and any chart image.
func (s *APIV1Service) sendChatMessage(c echo.Context) error {
	ctx := c.Request().Context()
	session, err := s.findSession(c)
	if err != nil {
		return err
	}

	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	history, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{SessionID: &session.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Sender:    store.SenderUser,
		Content:   content,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The first question names the session.
	title := session.Title
	if len(history) == 0 && (title == "" || title == defaultSessionTitle) {
		title = deriveTitle(content)
		if _, err := s.Store.UpdateChatSession(ctx, &store.UpdateChatSession{ID: session.ID, Title: &title}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	// A failed turn still produces an AI message. The user sees the
	// failure in chat instead of a dropped request.
	var answer string
	var image []byte
	var cost float64
	completion, err := s.Orchestrator.Answer(ctx, content, toChatHistory(history))
	if err != nil {
		slog.Error("agent turn failed", "session", session.UID, "error", err)
		answer = "Sorry, something went wrong while answering your question. Please try again."
	} else {
		answer = completion.Content
		image = completion.Image
		if completion.Cost > 0 {
			cost = completion.Cost
		}
	}

	var plotTag string
	if len(image) > 0 {
		// The image travels out of band; the tag in the text tells the
		// client where to fetch it.
		plotTag = uuid.NewString()
		answer = fmt.Sprintf("%s\n<PLOT_TAG:%s>", answer, plotTag)
	}

	aiMessage, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Sender:    store.SenderAI,
		Content:   answer,
		Cost:      cost,
		Image:     image,
		PlotTag:   plotTag,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if completion != nil {
		if err := s.Monitor.Record(ctx, &store.CostLog{
			SessionID:        session.ID,
			Tool:             "chat",
			Model:            completion.Model,
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			CachedTokens:     completion.Usage.CachedTokens,
			Cost:             completion.Cost,
		}); err != nil {
			// Spend tracking must not fail the turn.
			slog.Warn("failed to record cost", "session", session.UID, "error", err)
		}
	}

	return c.JSON(http.StatusOK, sendMessageResponse{
		Message: toMessageResponse(aiMessage),
		Title:   title,
	})
}

func (s *APIV1Service) getChatMessageImage(c echo.Context) error {
	uid := c.Param("uid")
	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{UID: &uid})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(messages) == 0 || !messages[0].HasImage {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.Blob(http.StatusOK, "image/png", messages[0].Image)
}

func (s *APIV1Service) getCostReport(c echo.Context) error {
	period := c.QueryParam("period")
	if period == "" {
		period = "daily"
	}
	report, err := s.Monitor.GetReport(c.Request().Context(), period)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (s *APIV1Service) findSession(c echo.Context) (*store.ChatSession, error) {
	uid := c.Param("uid")
	session, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if session == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "chat session not found")
	}
	return session, nil
}

func toSessionResponse(session *store.ChatSession, stats *store.ChatSessionStats) sessionResponse {
	return sessionResponse{
		UID:          session.UID,
		Title:        session.Title,
		CreatedTs:    session.CreatedTs,
		MessageCount: stats.MessageCount,
		TotalCost:    stats.TotalCost,
	}
}

func toMessageResponse(message *store.ChatMessage) messageResponse {
	return messageResponse{
		UID:       message.UID,
		Sender:    string(message.Sender),
		Content:   message.Content,
		Cost:      message.Cost,
		HasImage:  message.HasImage,
		PlotTag:   message.PlotTag,
		CreatedTs: message.CreatedTs,
	}
}

// toChatHistory replays stored turns as chat messages. Plot tags stay in
// the text; images never re-enter the prompt.
func toChatHistory(messages []*store.ChatMessage) []openai.ChatCompletionMessage {
	history := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		switch message.Sender {
		case store.SenderAI:
			history = append(history, ai.AssistantMessage(message.Content))
		default:
			history = append(history, ai.UserMessage(message.Content))
		}
	}
	return history
}

// deriveTitle names a session after its first question. Truncation
// counts runes so a multi-byte question is never split mid-character.
func deriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen]) + "..."
	}
	return title
}
