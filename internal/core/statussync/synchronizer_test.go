package statussync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubTarget struct {
	mu       sync.Mutex
	epoch    string
	token    string
	role     domain.Role
	status   domain.OnboardingStatus
	promoted int
}

func newSellerTarget(epoch string) *stubTarget {
	return &stubTarget{epoch: epoch, token: "tok", role: domain.RoleSeller, status: domain.StatusUnknown}
}

func (t *stubTarget) Epoch() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

func (t *stubTarget) Token() (string, domain.Role) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, t.role
}

func (t *stubTarget) ApplySellerStatus(_ context.Context, epoch string, status domain.OnboardingStatus, _ json.RawMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch || status == domain.StatusUnknown {
		return false
	}
	t.status = status
	return true
}

func (t *stubTarget) PromoteDashboard(epoch string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch {
		return false
	}
	t.promoted++
	return true
}

func (t *stubTarget) currentStatus() domain.OnboardingStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *stubTarget) promotions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.promoted
}

type stubSource struct {
	mu     sync.Mutex
	status domain.OnboardingStatus
	err    error
	calls  int
}

func (s *stubSource) FetchStatus(_ context.Context, _ string) (domain.OnboardingStatus, json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return domain.StatusUnknown, nil, s.err
	}
	return s.status, nil, nil
}

func (s *stubSource) set(status domain.OnboardingStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestSync(target *stubTarget, source *stubSource, store *memory.CredentialStore) *Synchronizer {
	return New(target, source, store, time.Hour, time.Millisecond, zerolog.Nop())
}

// ---------------------------------------------------------------------------

func TestSynchronizer_AppliesFetchedStatus(t *testing.T) {
	target := newSellerTarget("e1")
	source := &stubSource{status: domain.StatusPending}
	syn := newTestSync(target, source, memory.NewCredentialStore())

	syn.poll(context.Background(), "e1")

	if got := target.currentStatus(); got != domain.StatusPending {
		t.Fatalf("status not applied: %q", got)
	}
}

func TestSynchronizer_FailureRetainsLastKnownGood(t *testing.T) {
	target := newSellerTarget("e1")
	source := &stubSource{status: domain.StatusApproved}
	syn := newTestSync(target, source, memory.NewCredentialStore())

	syn.poll(context.Background(), "e1")
	if got := target.currentStatus(); got != domain.StatusApproved {
		t.Fatalf("setup: %q", got)
	}

	source.set(domain.StatusUnknown, context.DeadlineExceeded)
	syn.poll(context.Background(), "e1")

	if got := target.currentStatus(); got != domain.StatusApproved {
		t.Fatalf("fetch failure reset the status to %q", got)
	}
}

func TestSynchronizer_FailureFallsBackToCachedStatus(t *testing.T) {
	target := newSellerTarget("e1")
	source := &stubSource{err: context.DeadlineExceeded}

	store := memory.NewCredentialStore()
	store.Seed(domain.RoleSeller, `{"name":"shop","status":"pending"}`, "tok")
	syn := newTestSync(target, source, store)

	syn.poll(context.Background(), "e1")

	if got := target.currentStatus(); got != domain.StatusPending {
		t.Fatalf("cached status not applied on fetch failure: %q", got)
	}
}

func TestSynchronizer_SkipsNonSellerTarget(t *testing.T) {
	target := newSellerTarget("e1")
	target.role = domain.RoleCustomer
	source := &stubSource{status: domain.StatusApproved}
	syn := newTestSync(target, source, memory.NewCredentialStore())

	syn.poll(context.Background(), "e1")

	if source.callCount() != 0 {
		t.Fatalf("non-seller session must not be polled")
	}
}

func TestSynchronizer_StaleEpochNotApplied(t *testing.T) {
	target := newSellerTarget("e2")
	source := &stubSource{status: domain.StatusApproved}
	syn := newTestSync(target, source, memory.NewCredentialStore())

	// Response issued for a superseded instance.
	syn.poll(context.Background(), "e1")

	if got := target.currentStatus(); got != domain.StatusUnknown {
		t.Fatalf("stale response mutated the target: %q", got)
	}
	if target.promotions() != 0 {
		t.Fatalf("stale approval must not schedule a promotion")
	}
}

func TestSynchronizer_ApprovalPromotesDashboardOnce(t *testing.T) {
	target := newSellerTarget("e1")
	source := &stubSource{status: domain.StatusPending}
	syn := newTestSync(target, source, memory.NewCredentialStore())

	ctx := context.Background()
	syn.poll(ctx, "e1")

	source.set(domain.StatusApproved, nil)
	syn.poll(ctx, "e1")
	// Still approved on later polls; must not schedule again.
	syn.poll(ctx, "e1")
	syn.poll(ctx, "e1")

	waitFor(t, func() bool { return target.promotions() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := target.promotions(); got != 1 {
		t.Fatalf("promotion fired %d times, want exactly once", got)
	}
}

func TestSynchronizer_RunStopsOnCancel(t *testing.T) {
	target := newSellerTarget("e1")
	source := &stubSource{status: domain.StatusPending}
	syn := New(target, source, memory.NewCredentialStore(), 10*time.Millisecond, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syn.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return source.callCount() >= 2 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	// One extra interval with no further polls.
	calls := source.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := source.callCount(); got != calls {
		t.Fatalf("poll fired after cancellation: %d -> %d", calls, got)
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
