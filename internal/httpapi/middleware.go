package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/tenant"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

const (
	headerActor       = "X-Actor"
	headerChannelCode = "X-Channel-Code"
)

// requestContext moves request id, actor and channel code from headers into the request
// context so services and logs see them.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			ctx := tenant.WithRequestID(req.Context(), rid)
			if actor := req.Header.Get(headerActor); actor != "" {
				ctx = tenant.WithActor(ctx, actor)
			}
			if code := req.Header.Get(headerChannelCode); code != "" {
				ctx = tenant.WithChannelCode(ctx, code)
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// observe records latency and status per route and logs the request. Errors are rendered
// here so the recorded status is the one the client sees.
func observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			observer.ObserveHTTPRequest(req.Method, route, status, elapsed)
			logger.FromContext(req.Context()).Debug("HTTP request",
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
			)
			return nil
		}
	}
}
