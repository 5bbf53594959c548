package ports

import (
	"context"
	"encoding/json"

	"github.com/shopsphere/session-gateway/internal/core/domain"
)

// AuthResult is the portion of an upstream login/registration response the
// gateway consumes. The token is an opaque bearer string owned by the
// backend; the profile is passed through untouched.
type AuthResult struct {
	Token   string
	Profile json.RawMessage
	Message string
}

// Credentials are forwarded verbatim to the upstream authentication
// endpoint for the requested role.
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// AuthClient talks to the marketplace backend's per-role login and
// registration endpoints. Credential correctness is the backend's job; the
// client only handles the response shape.
type AuthClient interface {
	Login(ctx context.Context, role domain.Role, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, role domain.Role, creds Credentials) (*AuthResult, error)
}

// SellerStatusClient reads a seller's onboarding status from the backend.
// The raw status string is normalized at this boundary; the returned
// profile is the refreshed seller object from the response, if any.
type SellerStatusClient interface {
	FetchStatus(ctx context.Context, token string) (domain.OnboardingStatus, json.RawMessage, error)
}
