package ports

import (
	"context"
	"encoding/json"

	"github.com/shopsphere/session-gateway/internal/core/domain"
)

// CredentialRecord is a persisted (profile, token) pair for one role.
// The profile is carried as raw bytes: the store never interprets it.
type CredentialRecord struct {
	Profile json.RawMessage
	Token   string
}

// CredentialStore persists per-role credential pairs for a single browser
// session. Implementations must treat the pair as one unit: Write stores
// both fields or neither, and Read reports absence unless both are present,
// so the store never holds a token without its matching profile.
type CredentialStore interface {
	// Write persists the pair for role. Both keys or neither.
	Write(ctx context.Context, role domain.Role, profile json.RawMessage, token string) error
	// Read returns the pair for role, or domain.ErrNoCredentials when
	// either half is absent.
	Read(ctx context.Context, role domain.Role) (*CredentialRecord, error)
	// Erase removes both keys for role. Erasing an absent role is not an
	// error.
	Erase(ctx context.Context, role domain.Role) error
}
