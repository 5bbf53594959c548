// Package session implements the per-browser session state: a mutex-guarded
// store holding the active principal, plus the manager that owns the live
// sessions and their background synchronizers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

// DashboardView is the seller dashboard pane the UI should show.
type DashboardView string

const (
	ViewStatus   DashboardView = "status"
	ViewProducts DashboardView = "products"
)

// Session is the single source of truth for one browser session's
// principal. It is an explicit, injectable object: tests instantiate
// isolated sessions, nothing lives in package-level state.
//
// Every login and logout bumps the epoch. Asynchronous work (status polls,
// delayed dashboard promotion) captures the epoch at issue time and is
// discarded when it no longer matches, so a response belonging to a
// superseded session can never mutate its successor.
type Session struct {
	mu sync.Mutex

	id        string
	epoch     string
	principal domain.Principal
	ready     bool

	view            DashboardView
	statusChangedAt time.Time

	store ports.CredentialStore
	log   zerolog.Logger
}

// New creates a session bound to its credential store. The session is not
// ready until Hydrate or Login has run.
func New(id string, store ports.CredentialStore, log zerolog.Logger) *Session {
	return &Session{
		id:    id,
		epoch: uuid.NewString(),
		view:  ViewStatus,
		store: store,
		log:   log.With().Str("session_id", id).Logger(),
	}
}

// Hydrate restores the principal from persisted credentials. Roles are
// probed in domain.HydrationOrder; the first role whose profile parses and
// whose token is non-empty wins. Corrupt entries are logged and treated as
// absent. The ready flag is set exactly once regardless of outcome.
func (s *Session) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() { s.ready = true }()

	if !s.principal.IsAnonymous() {
		return
	}

	for _, role := range domain.HydrationOrder {
		rec, err := s.store.Read(ctx, role)
		if err != nil {
			if err != domain.ErrNoCredentials {
				s.log.Warn().Err(err).Str("role", string(role)).Msg("credential read failed during hydration")
			}
			continue
		}
		if rec.Token == "" || !json.Valid(rec.Profile) {
			s.log.Warn().Str("role", string(role)).Msg("corrupt persisted credentials, skipping role")
			continue
		}

		s.principal = domain.Principal{
			Role:    role,
			Token:   rec.Token,
			Profile: rec.Profile,
		}
		if role == domain.RoleSeller {
			s.principal.SellerStatus = domain.StatusFromProfile(rec.Profile)
		}
		return
	}
}

// Login replaces the principal with the given role's variant. The other
// roles' persisted keys are erased and the new pair is written before the
// in-memory state changes, so a failed login leaves the session untouched
// and no observer ever sees two roles set at once.
func (s *Session) Login(ctx context.Context, role domain.Role, profile json.RawMessage, token string) error {
	if role == domain.RoleAnonymous || token == "" {
		return domain.ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range domain.HydrationOrder {
		if other == role {
			continue
		}
		if err := s.store.Erase(ctx, other); err != nil {
			return fmt.Errorf("login: erase %s credentials: %w", other, err)
		}
	}
	if err := s.store.Write(ctx, role, profile, token); err != nil {
		return fmt.Errorf("login: persist %s credentials: %w", role, err)
	}

	s.principal = domain.Principal{Role: role, Token: token, Profile: profile}
	if role == domain.RoleSeller {
		s.principal.SellerStatus = domain.StatusUnknown
	}
	s.view = ViewStatus
	s.epoch = uuid.NewString()
	s.ready = true
	return nil
}

// UpdateToken swaps the active role's bearer token in place. A call against
// an anonymous session is a silent no-op.
func (s *Session) UpdateToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.principal.IsAnonymous() || token == "" {
		return nil
	}
	if err := s.store.Write(ctx, s.principal.Role, s.principal.Profile, token); err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	s.principal.Token = token
	return nil
}

// Logout resets the session to anonymous and erases the active role's
// persisted keys. Idempotent: logging out an anonymous session is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.principal.IsAnonymous() {
		return nil
	}

	role := s.principal.Role
	eraseErr := s.store.Erase(ctx, role)

	s.principal = domain.Anonymous()
	s.view = ViewStatus
	s.epoch = uuid.NewString()

	if eraseErr != nil {
		return fmt.Errorf("logout: erase %s credentials: %w", role, eraseErr)
	}
	return nil
}

// ApplySellerStatus reconciles a synchronized status value into the
// session. The write is dropped unless epoch still identifies the current
// session instance and the principal is still a seller. When a refreshed
// profile accompanies the status, the persisted mirror is updated as well.
// Reports whether the value was applied.
func (s *Session) ApplySellerStatus(ctx context.Context, epoch string, status domain.OnboardingStatus, profile json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.principal.Role != domain.RoleSeller {
		return false
	}
	if status == domain.StatusUnknown {
		return false
	}

	if status != s.principal.SellerStatus {
		s.statusChangedAt = time.Now()
	}
	s.principal.SellerStatus = status
	if len(profile) > 0 && json.Valid(profile) {
		s.principal.Profile = profile
	}

	if err := s.store.Write(ctx, domain.RoleSeller, s.principal.Profile, s.principal.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to mirror seller status to credential store")
	}
	return true
}

// PromoteDashboard switches the seller dashboard from the status pane to
// the product pane. Guarded by epoch so a delayed promotion scheduled
// before logout cannot fire into a successor session, and by the current
// view so it happens at most once per approval detection.
func (s *Session) PromoteDashboard(epoch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.principal.Role != domain.RoleSeller || s.view != ViewStatus {
		return false
	}
	s.view = ViewProducts
	return true
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Epoch returns the identifier of the current session instance.
func (s *Session) Epoch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Ready reports whether hydration has completed. Before that, callers must
// treat authorization as unknown, not denied.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Principal returns a snapshot of the current principal.
func (s *Session) Principal() domain.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

// Token returns the active bearer token and its role tag.
func (s *Session) Token() (string, domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal.Token, s.principal.Role
}

// View returns the current seller dashboard pane.
func (s *Session) View() DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// StatusChangedAt returns when the onboarding status last changed value.
// Purely decorative: the UI uses it for a highlight window, the status
// value itself never depends on it.
func (s *Session) StatusChangedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusChangedAt
}
