package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

const defaultCredentialTTL = 24 * time.Hour

// CredentialStore persists per-role credential pairs in Redis, namespaced
// per browser session.
// Key format: cred:<session_id>:<role>.authData / cred:<session_id>:<role>.token
type CredentialStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewCredentialStore scopes a store to one session's key namespace.
func NewCredentialStore(client *redis.Client, sessionID string, ttl time.Duration) *CredentialStore {
	if ttl <= 0 {
		ttl = defaultCredentialTTL
	}
	return &CredentialStore{client: client, sessionID: sessionID, ttl: ttl}
}

// Write stores the pair inside one MULTI/EXEC transaction, so Redis never
// holds a token without its matching profile.
func (s *CredentialStore) Write(ctx context.Context, role domain.Role, profile json.RawMessage, token string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.profileKey(role), []byte(profile), s.ttl)
	pipe.Set(ctx, s.tokenKey(role), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("credential write: %w", err)
	}
	return nil
}

// Read returns the pair for role. A pair with either half missing is
// reported as absent: a lone key is unusable and treated the same as none.
func (s *CredentialStore) Read(ctx context.Context, role domain.Role) (*ports.CredentialRecord, error) {
	vals, err := s.client.MGet(ctx, s.profileKey(role), s.tokenKey(role)).Result()
	if err != nil {
		return nil, fmt.Errorf("credential read: %w", err)
	}

	profile, okProfile := vals[0].(string)
	token, okToken := vals[1].(string)
	if !okProfile || !okToken || token == "" {
		return nil, domain.ErrNoCredentials
	}

	return &ports.CredentialRecord{
		Profile: json.RawMessage(profile),
		Token:   token,
	}, nil
}

// Erase deletes both keys for role. Deleting absent keys is not an error.
func (s *CredentialStore) Erase(ctx context.Context, role domain.Role) error {
	if err := s.client.Del(ctx, s.profileKey(role), s.tokenKey(role)).Err(); err != nil {
		return fmt.Errorf("credential erase: %w", err)
	}
	return nil
}

func (s *CredentialStore) profileKey(role domain.Role) string {
	return fmt.Sprintf("cred:%s:%s.authData", s.sessionID, role)
}

func (s *CredentialStore) tokenKey(role domain.Role) string {
	return fmt.Sprintf("cred:%s:%s.token", s.sessionID, role)
}
