// Package memory provides an in-process credential store. It backs tests
// and single-instance deployments that do not need sessions to survive a
// gateway restart.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

type record struct {
	profile json.RawMessage
	token   string
}

// CredentialStore keeps per-role credential pairs in a map. Writes replace
// the whole pair under one lock, so the both-or-neither contract holds.
type CredentialStore struct {
	mu      sync.Mutex
	records map[domain.Role]record
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{records: make(map[domain.Role]record)}
}

func (s *CredentialStore) Write(_ context.Context, role domain.Role, profile json.RawMessage, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[role] = record{profile: append(json.RawMessage(nil), profile...), token: token}
	return nil
}

func (s *CredentialStore) Read(_ context.Context, role domain.Role) (*ports.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[role]
	if !ok || rec.token == "" {
		return nil, domain.ErrNoCredentials
	}
	return &ports.CredentialRecord{
		Profile: append(json.RawMessage(nil), rec.profile...),
		Token:   rec.token,
	}, nil
}

func (s *CredentialStore) Erase(_ context.Context, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, role)
	return nil
}

// Seed plants a raw pair directly, bypassing Write. Intended for tests that
// need to simulate pre-existing or corrupt persisted state.
func (s *CredentialStore) Seed(role domain.Role, profile string, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[role] = record{profile: json.RawMessage(profile), token: token}
}
