// Package middleware contains the route guard. Earlier iterations carried
// two separate middlewares (a token-presence check and a role-list check)
// that could reach different conclusions from different authority sources;
// both are now collapsed into Guard, which derives one canonical role tag
// from the session's principal via guard.Resolve.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopsphere/session-gateway/internal/api/metrics"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/guard"
	"github.com/shopsphere/session-gateway/internal/core/session"
)

const sessionContextKey = "gateway_session"

// SessionResolver locates the session a gateway token names. Satisfied by
// *session.Manager.
type SessionResolver interface {
	ParseToken(token string) (string, error)
	Resolve(ctx context.Context, id string) *session.Session
}

// Guard protects a route group with the canonical authorization decision.
// The required roles form the route's authorization requirement; the
// decision is rendered as HTTP:
//
//	Defer                  → 503 + Retry-After (hydration pending, no redirect yet)
//	RedirectToLogin        → 401 + login location
//	RedirectToUnauthorized → 403 + unauthorized location
//	Allow                  → session injected into context, next handler runs
func Guard(resolver SessionResolver, required ...domain.Role) echo.MiddlewareFunc {
	requiredSet := guard.Roles(required...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := lookupSession(c, resolver)

			var decision guard.Decision
			if sess == nil {
				decision = guard.Resolve(true, domain.Anonymous(), requiredSet)
			} else {
				decision = guard.Resolve(sess.Ready(), sess.Principal(), requiredSet)
			}
			metrics.GuardDecisionsTotal.WithLabelValues(string(decision)).Inc()

			switch decision {
			case guard.Defer:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error": "session initializing",
				})
			case guard.RedirectToLogin:
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":    "login required",
					"location": "/login",
				})
			case guard.RedirectToUnauthorized:
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":    "this account type cannot access this page",
					"location": "/unauthorized",
				})
			}

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// SessionFromContext returns the session injected by Guard, or nil when the
// route is unguarded or the guard did not allow the request.
func SessionFromContext(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionContextKey).(*session.Session)
	return sess
}

// lookupSession extracts the bearer gateway token and resolves its session.
// Missing or invalid tokens yield nil: the caller treats that as anonymous.
func lookupSession(c echo.Context, resolver SessionResolver) *session.Session {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	sid, err := resolver.ParseToken(parts[1])
	if err != nil {
		return nil
	}
	return resolver.Resolve(c.Request().Context(), sid)
}
