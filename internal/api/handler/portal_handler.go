package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopsphere/session-gateway/internal/api/middleware"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/session"
)

// PortalHandler serves the session snapshot and the small role-guarded
// portal pages that exercise the route table.
type PortalHandler struct {
	mgr *session.Manager
}

func NewPortalHandler(mgr *session.Manager) *PortalHandler {
	return &PortalHandler{mgr: mgr}
}

type sessionResponse struct {
	Role         domain.Role             `json:"role"`
	Ready        bool                    `json:"ready"`
	SellerStatus domain.OnboardingStatus `json:"seller_status,omitempty"`
}

// Session returns the caller's current principal snapshot. Unguarded:
// an anonymous browser gets an anonymous snapshot, not a redirect.
func (h *PortalHandler) Session(c echo.Context) error {
	sid := sessionIDFromRequest(c, h.mgr)
	if sid == "" {
		return c.JSON(http.StatusOK, sessionResponse{Role: domain.RoleAnonymous, Ready: true})
	}

	sess := h.mgr.Resolve(c.Request().Context(), sid)
	p := sess.Principal()
	return c.JSON(http.StatusOK, sessionResponse{
		Role:         p.Role,
		Ready:        sess.Ready(),
		SellerStatus: p.SellerStatus,
	})
}

// Account renders the profile page shared by every authenticated role.
func (h *PortalHandler) Account(c echo.Context) error {
	sess := middleware.SessionFromContext(c)
	p := sess.Principal()
	return c.JSON(http.StatusOK, map[string]any{
		"role":    p.Role,
		"profile": p.Profile,
	})
}

// AdminOverview is the admin console landing payload.
func (h *PortalHandler) AdminOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"active_sessions": h.mgr.ActiveSessions(),
	})
}
