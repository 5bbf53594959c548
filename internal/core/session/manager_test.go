package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
	"github.com/shopsphere/session-gateway/internal/infrastructure/db/memory"
)

// storeMap hands out one memory store per session namespace, the way the
// real factories scope Redis/Mongo stores per session ID.
type storeMap struct {
	mu sync.Mutex
	m  map[string]*memory.CredentialStore
}

func newStoreMap() *storeMap {
	return &storeMap{m: make(map[string]*memory.CredentialStore)}
}

func (s *storeMap) factory(sid string) ports.CredentialStore {
	return s.get(sid)
}

func (s *storeMap) get(sid string) *memory.CredentialStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[sid]
	if !ok {
		st = memory.NewCredentialStore()
		s.m[sid] = st
	}
	return st
}

type countingSource struct {
	mu     sync.Mutex
	status domain.OnboardingStatus
	calls  int
}

func (s *countingSource) FetchStatus(_ context.Context, _ string) (domain.OnboardingStatus, json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.status, nil, nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestManager(stores *storeMap, source ports.SellerStatusClient, pollInterval time.Duration) *Manager {
	return NewManager(stores.factory, source, Config{
		JWTSecret:           "secret",
		TokenTTL:            time.Hour,
		PollInterval:        pollInterval,
		ApprovalNoticeDelay: time.Millisecond,
	}, zerolog.Nop())
}

func TestManager_TokenRoundTrip(t *testing.T) {
	stores := newStoreMap()
	mgr := newTestManager(stores, &countingSource{status: domain.StatusPending}, time.Hour)

	sess, err := mgr.Login(context.Background(), "", domain.RoleCustomer, json.RawMessage(`{}`), "tok")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	token, err := mgr.MintToken(sess)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	sid, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if sid != sess.ID() {
		t.Fatalf("expected sid %q, got %q", sess.ID(), sid)
	}

	if _, err := mgr.ParseToken("not-a-token"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for garbage token, got %v", err)
	}
}

func TestManager_LoginStartsSellerPolling(t *testing.T) {
	stores := newStoreMap()
	source := &countingSource{status: domain.StatusPending}
	mgr := newTestManager(stores, source, 10*time.Millisecond)
	defer mgr.Shutdown()

	sess, err := mgr.Login(context.Background(), "", domain.RoleSeller, json.RawMessage(`{}`), "tok")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	waitFor(t, func() bool { return source.callCount() >= 2 })
	waitFor(t, func() bool { return sess.Principal().SellerStatus == domain.StatusPending })
}

func TestManager_LogoutTeardown(t *testing.T) {
	ctx := context.Background()
	stores := newStoreMap()
	source := &countingSource{status: domain.StatusApproved}
	mgr := newTestManager(stores, source, 10*time.Millisecond)
	defer mgr.Shutdown()

	sess, err := mgr.Login(ctx, "", domain.RoleSeller, json.RawMessage(`{"name":"shop"}`), "tok")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	waitFor(t, func() bool { return source.callCount() >= 1 })

	if err := mgr.Logout(ctx, sess.ID()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// In-memory principal is anonymous and both persisted keys are gone.
	if p := sess.Principal(); !p.IsAnonymous() {
		t.Fatalf("expected anonymous after logout, got %+v", p)
	}
	if _, err := stores.get(sess.ID()).Read(ctx, domain.RoleSeller); err != domain.ErrNoCredentials {
		t.Fatalf("persisted seller keys should be erased, got %v", err)
	}
	if mgr.ActiveSessions() != 0 {
		t.Fatalf("session still registered after logout")
	}

	// Wait one extra poll interval: no further timer may fire.
	calls := source.callCount()
	time.Sleep(40 * time.Millisecond)
	if got := source.callCount(); got != calls {
		t.Fatalf("poll fired after logout: %d -> %d", calls, got)
	}
	if p := sess.Principal(); !p.IsAnonymous() || p.SellerStatus != "" {
		t.Fatalf("state mutated after logout: %+v", p)
	}

	// Logging out again, or against an unknown session, is a no-op.
	if err := mgr.Logout(ctx, sess.ID()); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
	if err := mgr.Logout(ctx, "never-seen"); err != nil {
		t.Fatalf("unknown session logout: %v", err)
	}
}

func TestManager_ReloginSupersedesPreviousRole(t *testing.T) {
	ctx := context.Background()
	stores := newStoreMap()
	mgr := newTestManager(stores, &countingSource{status: domain.StatusPending}, time.Hour)
	defer mgr.Shutdown()

	sess, err := mgr.Login(ctx, "", domain.RoleSeller, json.RawMessage(`{}`), "sell-tok")
	if err != nil {
		t.Fatalf("seller login: %v", err)
	}

	again, err := mgr.Login(ctx, sess.ID(), domain.RoleAdmin, json.RawMessage(`{}`), "admin-tok")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if again != sess {
		t.Fatalf("re-login must reuse the browser session object")
	}

	p := sess.Principal()
	if p.Role != domain.RoleAdmin {
		t.Fatalf("expected admin principal, got %+v", p)
	}
	if _, err := stores.get(sess.ID()).Read(ctx, domain.RoleSeller); err != domain.ErrNoCredentials {
		t.Fatalf("seller credentials should be gone after role switch, got %v", err)
	}
}

func TestManager_FailedReloginKeepsSellerPolling(t *testing.T) {
	ctx := context.Background()
	stores := newStoreMap()
	source := &countingSource{status: domain.StatusPending}
	mgr := newTestManager(stores, source, time.Hour)
	defer mgr.Shutdown()

	sess, err := mgr.Login(ctx, "", domain.RoleSeller, json.RawMessage(`{}`), "sell-tok")
	if err != nil {
		t.Fatalf("seller login: %v", err)
	}
	waitFor(t, func() bool { return source.callCount() >= 1 })

	// An empty upstream token makes the role switch fail after the old
	// synchronizer was already stopped.
	if _, err := mgr.Login(ctx, sess.ID(), domain.RoleAdmin, json.RawMessage(`{}`), ""); err == nil {
		t.Fatalf("expected re-login to fail")
	}

	if p := sess.Principal(); p.Role != domain.RoleSeller {
		t.Fatalf("failed login mutated principal: %+v", p)
	}

	// The surviving seller must still be polled: the restarted
	// synchronizer fires immediately.
	waitFor(t, func() bool { return source.callCount() >= 2 })
	waitFor(t, func() bool { return sess.Principal().SellerStatus == domain.StatusPending })
}

func TestManager_StartSyncReplacesRunningSynchronizer(t *testing.T) {
	ctx := context.Background()
	stores := newStoreMap()
	source := &countingSource{status: domain.StatusPending}
	mgr := newTestManager(stores, source, 10*time.Millisecond)

	sess, err := mgr.Login(ctx, "", domain.RoleSeller, json.RawMessage(`{}`), "sell-tok")
	if err != nil {
		t.Fatalf("seller login: %v", err)
	}
	waitFor(t, func() bool { return source.callCount() >= 1 })

	// Start a second synchronizer for the same entry, as when two logins
	// for one browser session interleave. The running one must be
	// cancelled, not have its cancel func overwritten and leaked.
	mgr.mu.Lock()
	mgr.startSyncLocked(mgr.sessions[sess.ID()])
	mgr.mu.Unlock()

	mgr.Shutdown()

	// Let any in-flight poll finish, then no further timer may fire.
	time.Sleep(20 * time.Millisecond)
	calls := source.callCount()
	time.Sleep(50 * time.Millisecond)
	if got := source.callCount(); got != calls {
		t.Fatalf("synchronizer survived shutdown: %d -> %d polls", calls, got)
	}
}

func TestManager_ResolveRehydratesAfterRestart(t *testing.T) {
	ctx := context.Background()
	stores := newStoreMap()
	stores.get("browser-1").Seed(domain.RoleSeller, `{"name":"shop","status":"approved"}`, "sell-tok")

	// Fresh manager, as after a gateway restart.
	mgr := newTestManager(stores, &countingSource{status: domain.StatusApproved}, time.Hour)
	defer mgr.Shutdown()

	sess := mgr.Resolve(ctx, "browser-1")
	p := sess.Principal()
	if p.Role != domain.RoleSeller || p.Token != "sell-tok" {
		t.Fatalf("rehydration failed: %+v", p)
	}
	if p.SellerStatus != domain.StatusApproved {
		t.Fatalf("cached status should survive restart, got %q", p.SellerStatus)
	}
	if mgr.ActiveSessions() != 1 {
		t.Fatalf("rehydrated session not registered")
	}

	// Second resolve returns the same live object.
	if mgr.Resolve(ctx, "browser-1") != sess {
		t.Fatalf("resolve must return the registered session")
	}

	// An unknown browser hydrates to a ready anonymous session.
	anon := mgr.Resolve(ctx, "browser-2")
	if !anon.Ready() || !anon.Principal().IsAnonymous() {
		t.Fatalf("unknown browser should yield ready anonymous session")
	}
	if mgr.ActiveSessions() != 1 {
		t.Fatalf("anonymous sessions must not be retained")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
