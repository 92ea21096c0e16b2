package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
)

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// Authorizer decides whether a caller may use the API. Any error denies the request.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey string) error
}

// StaticKeyAuthorizer accepts a fixed set of keys. With no keys configured every caller is let in.
type StaticKeyAuthorizer struct {
	keys [][]byte
}

// NewStaticKeyAuthorizer ignores blank entries.
func NewStaticKeyAuthorizer(keys []string) *StaticKeyAuthorizer {
	a := &StaticKeyAuthorizer{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *StaticKeyAuthorizer) Enabled() bool {
	return len(a.keys) > 0
}

func (a *StaticKeyAuthorizer) Authorize(_ context.Context, apiKey string) error {
	if !a.Enabled() {
		return nil
	}
	if apiKey == "" {
		return fmt.Errorf("%w: missing %s header", apperrors.ErrUnauthorized, APIKeyHeader)
	}
	presented := []byte(apiKey)
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(presented, k) == 1 {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid api key", apperrors.ErrUnauthorized)
}

// requireAuth fails closed: an authorizer error other than ErrUnauthorized still denies,
// surfacing as whatever status that error maps to.
func requireAuth(auth Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := auth.Authorize(c.Request().Context(), c.Request().Header.Get(APIKeyHeader)); err != nil {
				return err
			}
			return next(c)
		}
	}
}
