package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/api/metrics"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
	"github.com/shopsphere/session-gateway/internal/core/statussync"
)

const (
	defaultTokenTTL = 24 * time.Hour
)

// StoreFactory builds a credential store scoped to one browser session's
// key namespace.
type StoreFactory func(sessionID string) ports.CredentialStore

// Config tunes session manager behaviour.
type Config struct {
	// JWTSecret signs the gateway session token handed to the browser.
	JWTSecret string
	// TokenTTL bounds the gateway session token lifetime.
	TokenTTL time.Duration
	// PollInterval is the seller status poll cadence.
	PollInterval time.Duration
	// ApprovalNoticeDelay is the user-visible pause between approval
	// detection and the dashboard switching to the product pane.
	ApprovalNoticeDelay time.Duration
}

// Manager owns the live sessions and the lifecycle of their status
// synchronizers. One Manager serves the whole gateway; each browser session
// keeps its own Session object.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	stores StoreFactory
	seller ports.SellerStatusClient
	cfg    Config
	log    zerolog.Logger
}

type entry struct {
	sess       *Session
	cancelSync context.CancelFunc
}

// NewManager wires a Manager from its collaborators.
func NewManager(stores StoreFactory, seller ports.SellerStatusClient, cfg Config, log zerolog.Logger) *Manager {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &Manager{
		sessions: make(map[string]*entry),
		stores:   stores,
		seller:   seller,
		cfg:      cfg,
		log:      log,
	}
}

// Resolve returns the live session for id, lazily rehydrating one from the
// credential store when the gateway has restarted since the browser's last
// visit. A session that hydrates to anonymous is returned ready but not
// retained.
func (m *Manager) Resolve(ctx context.Context, id string) *Session {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return e.sess
	}
	m.mu.Unlock()

	sess := New(id, m.stores(id), m.log)
	sess.Hydrate(ctx)

	p := sess.Principal()
	if p.IsAnonymous() {
		return sess
	}

	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		// Lost the race against a concurrent rehydration; use the winner.
		m.mu.Unlock()
		return e.sess
	}
	e := &entry{sess: sess}
	m.sessions[id] = e
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	if p.Role == domain.RoleSeller {
		m.startSyncLocked(e)
	}
	m.mu.Unlock()

	m.log.Info().Str("session_id", id).Str("role", string(p.Role)).Msg("session rehydrated from credential store")
	return sess
}

// Login establishes the given role on the browser session identified by id,
// creating the session when id is empty or unknown. Any synchronizer for a
// previous role is cancelled before the switch; a new one starts when the
// fresh principal is a seller.
func (m *Manager) Login(ctx context.Context, id string, role domain.Role, profile json.RawMessage, token string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	e, existed := m.sessions[id]
	if !existed {
		e = &entry{sess: New(id, m.stores(id), m.log)}
		m.sessions[id] = e
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.stopSyncLocked(e)
	m.mu.Unlock()

	if err := e.sess.Login(ctx, role, profile, token); err != nil {
		m.mu.Lock()
		if !existed {
			delete(m.sessions, id)
			metrics.ActiveSessions.Set(float64(len(m.sessions)))
		} else if _, current := e.sess.Token(); current == domain.RoleSeller {
			// The failed login left the previous principal in place, so the
			// surviving seller must get its synchronizer back.
			m.startSyncLocked(e)
		}
		m.mu.Unlock()
		return nil, err
	}

	if role == domain.RoleSeller {
		m.mu.Lock()
		m.startSyncLocked(e)
		m.mu.Unlock()
	}

	m.log.Info().Str("session_id", id).Str("role", string(role)).Msg("session established")
	return e.sess, nil
}

// Logout tears the session down: the synchronizer is cancelled
// synchronously first, then persisted keys are erased and the principal
// reset, so no in-flight poll can write status back for a just-logged-out
// session. Idempotent against unknown sessions.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		m.stopSyncLocked(e)
		delete(m.sessions, id)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		// No live session, but persisted keys may have survived a gateway
		// restart. Erase them all so the next hydration comes up anonymous.
		store := m.stores(id)
		for _, role := range domain.HydrationOrder {
			if err := store.Erase(ctx, role); err != nil {
				return fmt.Errorf("logout: erase %s credentials: %w", role, err)
			}
		}
		return nil
	}

	err := e.sess.Logout(ctx)
	m.log.Info().Str("session_id", id).Msg("session terminated")
	return err
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown cancels every synchronizer. Sessions stay persisted; browsers
// rehydrate on the next request after a restart.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sessions {
		m.stopSyncLocked(e)
	}
}

// MintToken issues the signed gateway token the browser presents on
// subsequent requests. The upstream bearer token never leaves the session.
func (m *Manager) MintToken(sess *Session) (string, error) {
	_, role := sess.Token()
	claims := jwt.MapClaims{
		"sid":  sess.ID(),
		"role": string(role),
		"exp":  time.Now().Add(m.cfg.TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(m.cfg.JWTSecret))
}

// ParseToken validates a gateway token and returns the session ID it names.
func (m *Manager) ParseToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(m.cfg.JWTSecret), nil
	})
	if err != nil || !tkn.Valid {
		return "", domain.ErrSessionNotFound
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", domain.ErrSessionNotFound
	}
	return sid, nil
}

// startSyncLocked launches the status synchronizer for e, cancelling any
// synchronizer e already owns so its cancel func is never overwritten and
// leaked. Caller holds m.mu.
func (m *Manager) startSyncLocked(e *entry) {
	m.stopSyncLocked(e)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelSync = cancel

	syn := statussync.New(
		e.sess,
		m.seller,
		m.stores(e.sess.ID()),
		m.cfg.PollInterval,
		m.cfg.ApprovalNoticeDelay,
		m.log.With().Str("session_id", e.sess.ID()).Logger(),
	)
	go syn.Run(ctx)
}

// stopSyncLocked cancels e's synchronizer, if any. Caller holds m.mu.
func (m *Manager) stopSyncLocked(e *entry) {
	if e.cancelSync != nil {
		e.cancelSync()
		e.cancelSync = nil
	}
}
