package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/plugin/ai"
	"github.com/chartlyhq/chartly/plugin/ai/agent"
	"github.com/chartlyhq/chartly/plugin/ai/nlquery"
	"github.com/chartlyhq/chartly/server/finops"
	"github.com/chartlyhq/chartly/server/router/apiv1"
	"github.com/chartlyhq/chartly/store"
)

// Server wires the HTTP layer to the store and the agent.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(requestLogger())
	s.echoServer = echoServer

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	aiService, err := ai.NewService(ai.NewConfigFromProfile(profile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AI service")
	}

	tools := agent.NewQueryTools(aiService, store, nlquery.Strategy(profile.QueryStrategy), profile.RowLimit)
	orchestrator := agent.NewOrchestrator(aiService, tools)
	monitor := finops.NewCostMonitor(store)

	apiV1Service := apiv1.NewAPIV1Service(profile, store, orchestrator, monitor)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "version", s.Profile.Version)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server shutdown")
}

// requestLogger logs each request with slog, skipping health checks.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	})
}
