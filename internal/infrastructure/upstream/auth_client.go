// Package upstream implements HTTP clients for the marketplace backend's
// authentication and seller-status endpoints. All payloads are JSON over
// HTTP with bearer-token authentication; the detailed shapes are owned by
// the backend and only partially consumed here.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

const defaultRequestTimeout = 10 * time.Second

// AuthClient calls the backend's per-role login and registration endpoints.
type AuthClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewAuthClient creates an AuthClient against baseURL. A nil client falls
// back to a default with a request timeout.
func NewAuthClient(baseURL string, client *http.Client, log zerolog.Logger) *AuthClient {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		log:     log,
	}
}

type authRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the slice of the backend response the gateway consumes.
// The profile arrives under a role-dependent field name; all candidates are
// probed and passed through untouched.
type authResponse struct {
	Token    string          `json:"token"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Profile  json.RawMessage `json:"profile"`
	User     json.RawMessage `json:"user"`
	Seller   json.RawMessage `json:"seller"`
	Admin    json.RawMessage `json:"admin"`
	Customer json.RawMessage `json:"customer"`
}

func (r *authResponse) profile() json.RawMessage {
	for _, candidate := range []json.RawMessage{r.Profile, r.User, r.Seller, r.Admin, r.Customer} {
		if len(candidate) > 0 {
			return candidate
		}
	}
	return nil
}

func (r *authResponse) message() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// Login authenticates against the backend for the given role.
func (c *AuthClient) Login(ctx context.Context, role domain.Role, creds ports.Credentials) (*ports.AuthResult, error) {
	return c.post(ctx, fmt.Sprintf("%s/api/%s/login", c.baseURL, role), role, creds)
}

// Register creates an account for the given role.
func (c *AuthClient) Register(ctx context.Context, role domain.Role, creds ports.Credentials) (*ports.AuthResult, error) {
	return c.post(ctx, fmt.Sprintf("%s/api/%s/register", c.baseURL, role), role, creds)
}

func (c *AuthClient) post(ctx context.Context, url string, role domain.Role, creds ports.Credentials) (*ports.AuthResult, error) {
	body, err := json.Marshal(authRequest{Name: creds.Name, Email: creds.Email, Password: creds.Password})
	if err != nil {
		return nil, fmt.Errorf("auth request encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	// The body is decoded best-effort: error responses are not guaranteed
	// to be JSON (a proxy may answer with an HTML error page), and the
	// status code alone already tells the failure story.
	var decoded authResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := decoded.message()
		if msg == "" {
			msg = fmt.Sprintf("upstream returned %d", resp.StatusCode)
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("role", string(role)).Msg("upstream auth rejected")
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, msg)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, decodeErr)
	}
	if decoded.Token == "" {
		return nil, fmt.Errorf("%w: response missing token", domain.ErrUpstream)
	}

	return &ports.AuthResult{
		Token:   decoded.Token,
		Profile: decoded.profile(),
		Message: decoded.message(),
	}, nil
}
