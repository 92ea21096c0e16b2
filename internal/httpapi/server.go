// Package httpapi is the REST and server-sent-events surface of the chat service.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// BasePath prefixes every REST route.
const BasePath = "/api/v1/chat"

// Server owns the echo instance.
type Server struct {
	echo      *echo.Echo
	port      int
	closing   chan struct{}
	closeOnce sync.Once
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Service ChatAPI
	Hub     StreamHub
	Auth    Authorizer
}

// NewServer builds the router. A nil authorizer lets every caller in.
func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID, APIKeyHeader, headerActor, headerChannelCode},
	}))
	e.Use(requestContext())
	e.Use(observe())

	auth := deps.Auth
	if auth == nil {
		auth = NewStaticKeyAuthorizer(nil)
	}

	h := &handlers{svc: deps.Service}
	api := e.Group(BasePath, requireAuth(auth))
	h.register(api)

	closing := make(chan struct{})
	st := &streamHandler{hub: deps.Hub, heartbeat: cfg.Stream.Heartbeat, closing: closing}
	e.GET(BasePath+"/stream", st.stream)

	if prefix := cfg.FileStorage.PublicBaseURL; strings.HasPrefix(prefix, "/") && cfg.FileStorage.BaseDir != "" {
		e.Static(prefix, cfg.FileStorage.BaseDir)
	}

	return &Server{echo: e, port: cfg.Server.Port, closing: closing}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Log.Info("Starting HTTP API", zap.String("address", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

// Shutdown ends open event streams, stops accepting requests and waits for in-flight
// ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	return s.echo.Shutdown(ctx)
}
