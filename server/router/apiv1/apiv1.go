// Package apiv1 exposes the chat API over JSON/HTTP.
package apiv1

import (
	"github.com/labstack/echo/v4"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/plugin/ai/agent"
	"github.com/chartlyhq/chartly/server/finops"
	"github.com/chartlyhq/chartly/store"
)

// APIV1Service holds the dependencies of the v1 routes.
type APIV1Service struct {
	Profile      *profile.Profile
	Store        *store.Store
	Orchestrator *agent.Orchestrator
	Monitor      *finops.CostMonitor
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, orchestrator *agent.Orchestrator, monitor *finops.CostMonitor) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Store:        store,
		Orchestrator: orchestrator,
		Monitor:      monitor,
	}
}

// RegisterRoutes mounts all v1 routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.GET("/chats", s.listChatSessions)
	g.POST("/chats", s.createChatSession)
	g.GET("/chats/:uid", s.getChatSession)
	g.PATCH("/chats/:uid", s.updateChatSession)
	g.DELETE("/chats/:uid", s.deleteChatSession)

	g.GET("/chats/:uid/messages", s.listChatMessages)
	g.POST("/chats/:uid/messages", s.sendChatMessage)
	g.GET("/messages/:uid/image", s.getChatMessageImage)

	g.GET("/costs/report", s.getCostReport)
}
