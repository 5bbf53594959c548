package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/api/metrics"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
	"github.com/shopsphere/session-gateway/internal/core/session"
)

// AuthHandler proxies login and registration to the marketplace backend
// and manages the browser's gateway session around the result.
type AuthHandler struct {
	mgr      *session.Manager
	upstream ports.AuthClient
	log      zerolog.Logger
}

func NewAuthHandler(mgr *session.Manager, upstream ports.AuthClient, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{mgr: mgr, upstream: upstream, log: log}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Role    domain.Role     `json:"role"`
	Profile json.RawMessage `json:"profile,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Login authenticates the given role against the backend. On success the
// gateway session adopts that role exclusively and a signed gateway token
// is returned; on failure the session is left untouched and the backend's
// message is surfaced inline.
func (h *AuthHandler) Login(c echo.Context) error {
	role, ok := domain.ParseRole(c.Param("role"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid role"})
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.upstream.Login(c.Request().Context(), role, ports.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(role), "error").Inc()
		return c.JSON(authFailureStatus(err), map[string]string{"error": userMessage(err)})
	}

	sess, err := h.mgr.Login(c.Request().Context(), h.sessionID(c), role, result.Profile, result.Token)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(role), "error").Inc()
		return err
	}

	gatewayToken, err := h.mgr.MintToken(sess)
	if err != nil {
		return err
	}

	metrics.LoginsTotal.WithLabelValues(string(role), "ok").Inc()
	return c.JSON(http.StatusOK, authResponse{
		Token:   gatewayToken,
		Role:    role,
		Profile: result.Profile,
		Message: result.Message,
	})
}

// Register creates an account for the given role. The backend issues a
// token on successful registration, so the session is established the same
// way a login would.
func (h *AuthHandler) Register(c echo.Context) error {
	role, ok := domain.ParseRole(c.Param("role"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid role"})
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.upstream.Register(c.Request().Context(), role, ports.Credentials{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return c.JSON(authFailureStatus(err), map[string]string{"error": userMessage(err)})
	}

	sess, err := h.mgr.Login(c.Request().Context(), h.sessionID(c), role, result.Profile, result.Token)
	if err != nil {
		return err
	}

	gatewayToken, err := h.mgr.MintToken(sess)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{
		Token:   gatewayToken,
		Role:    role,
		Profile: result.Profile,
		Message: result.Message,
	})
}

// Logout tears down the caller's session. Always succeeds from the
// caller's perspective: logging out without a session is a no-op.
func (h *AuthHandler) Logout(c echo.Context) error {
	sid := h.sessionID(c)
	if err := h.mgr.Logout(c.Request().Context(), sid); err != nil {
		h.log.Warn().Err(err).Str("session_id", sid).Msg("logout cleanup incomplete")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// sessionID extracts the browser's existing gateway session ID, if it
// presented a valid token. Re-login within the same browser session reuses
// the session object so the role switch is atomic.
func (h *AuthHandler) sessionID(c echo.Context) string {
	return sessionIDFromRequest(c, h.mgr)
}

func authFailureStatus(err error) int {
	if errors.Is(err, domain.ErrUpstream) {
		return http.StatusBadGateway
	}
	return http.StatusUnauthorized
}

// userMessage strips the sentinel prefix so only the human-readable part
// reaches the client.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrInvalidCredentials, domain.ErrUpstream} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
