package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopsphere/session-gateway/internal/core/session"
)

// sessionIDFromRequest extracts the browser's gateway session ID from the
// Authorization header, when a valid gateway token is present. Absence is
// not an error here: login creates a session, logout treats it as done.
func sessionIDFromRequest(c echo.Context, mgr *session.Manager) string {
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	sid, err := mgr.ParseToken(parts[1])
	if err != nil {
		return ""
	}
	return sid
}
