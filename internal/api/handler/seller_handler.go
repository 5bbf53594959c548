package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/api/middleware"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/session"
)

// highlightWindow is how long the status banner stays decorated after the
// onboarding status changes. Purely cosmetic; the status value itself never
// depends on it.
const highlightWindow = 15 * time.Second

// SellerHandler serves the seller dashboard and the approval-gated product
// actions.
type SellerHandler struct {
	log zerolog.Logger
}

func NewSellerHandler(log zerolog.Logger) *SellerHandler {
	return &SellerHandler{log: log}
}

type dashboardResponse struct {
	Status    domain.OnboardingStatus `json:"status"`
	View      session.DashboardView   `json:"view"`
	Approved  bool                    `json:"approved"`
	Highlight bool                    `json:"highlight"`
}

// Dashboard returns the seller's banner state: the synchronized onboarding
// status, the active dashboard pane, and the decorative highlight flag.
func (h *SellerHandler) Dashboard(c echo.Context) error {
	sess := middleware.SessionFromContext(c)
	p := sess.Principal()

	changedAt := sess.StatusChangedAt()
	return c.JSON(http.StatusOK, dashboardResponse{
		Status:    p.SellerStatus,
		View:      sess.View(),
		Approved:  p.IsApproved(),
		Highlight: !changedAt.IsZero() && time.Since(changedAt) < highlightWindow,
	})
}

type createProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// CreateProduct accepts a product listing. The approval gate reads the
// status synchronized at this moment, not one captured when the dashboard
// loaded: a seller approved seconds ago may list immediately, and one
// suspended since mount may not.
func (h *SellerHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	sess := middleware.SessionFromContext(c)
	if !sess.Principal().IsApproved() {
		return domain.ErrNotApproved
	}

	h.log.Info().Str("session_id", sess.ID()).Str("product", req.Name).Msg("product listing accepted")
	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "product submitted for listing",
		"product": req,
	})
}
