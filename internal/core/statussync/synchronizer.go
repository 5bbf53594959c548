// Package statussync keeps a seller session's onboarding status reconciled
// with the marketplace backend by polling its status endpoint.
package statussync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/api/metrics"
	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

const (
	defaultInterval      = 10 * time.Second
	defaultApprovalDelay = 2 * time.Second
)

// Target is the slice of a session the synchronizer mutates. Both writes
// carry the epoch captured when the synchronizer started; the target drops
// them once the epoch is superseded.
type Target interface {
	Epoch() string
	Token() (string, domain.Role)
	ApplySellerStatus(ctx context.Context, epoch string, status domain.OnboardingStatus, profile json.RawMessage) bool
	PromoteDashboard(epoch string) bool
}

// Synchronizer is a cancellable scheduled task bound to one session
// instance. It is not restartable: create a fresh one per seller login.
type Synchronizer struct {
	target Target
	source ports.SellerStatusClient
	store  ports.CredentialStore

	interval      time.Duration
	approvalDelay time.Duration

	lastStatus domain.OnboardingStatus
	log        zerolog.Logger
}

// New creates a Synchronizer. Non-positive durations fall back to the
// defaults (10s interval, 2s approval notice delay).
func New(target Target, source ports.SellerStatusClient, store ports.CredentialStore, interval, approvalDelay time.Duration, log zerolog.Logger) *Synchronizer {
	if interval <= 0 {
		interval = defaultInterval
	}
	if approvalDelay < 0 {
		approvalDelay = defaultApprovalDelay
	}
	return &Synchronizer{
		target:        target,
		source:        source,
		store:         store,
		interval:      interval,
		approvalDelay: approvalDelay,
		lastStatus:    domain.StatusUnknown,
		log:           log,
	}
}

// Run polls until ctx is cancelled. The first poll fires immediately, then
// every interval. A failed poll waits for the next tick; it never spawns an
// extra retry and is never treated as logout-worthy.
func (s *Synchronizer) Run(ctx context.Context) {
	epoch := s.target.Epoch()

	s.poll(ctx, epoch)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, epoch)
		}
	}
}

func (s *Synchronizer) poll(ctx context.Context, epoch string) {
	token, role := s.target.Token()
	if role != domain.RoleSeller || token == "" {
		return
	}

	status, profile, err := s.source.FetchStatus(ctx, token)
	if err != nil {
		metrics.StatusPollsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("seller status fetch failed, keeping last known value")
		s.applyCached(ctx, epoch)
		return
	}

	metrics.StatusPollsTotal.WithLabelValues("ok").Inc()
	s.apply(ctx, epoch, status, profile)
}

// applyCached falls back to the status mirrored in the credential store.
// Useful right after hydration, when the in-memory value may still be
// unknown; an unknown cached value is simply not applied, so a previously
// synchronized status is never regressed.
func (s *Synchronizer) applyCached(ctx context.Context, epoch string) {
	rec, err := s.store.Read(ctx, domain.RoleSeller)
	if err != nil {
		return
	}
	cached := domain.StatusFromProfile(rec.Profile)
	if cached == domain.StatusUnknown {
		return
	}
	s.apply(ctx, epoch, cached, nil)
}

func (s *Synchronizer) apply(ctx context.Context, epoch string, status domain.OnboardingStatus, profile json.RawMessage) {
	if !s.target.ApplySellerStatus(ctx, epoch, status, profile) {
		return
	}

	if status == domain.StatusApproved && s.lastStatus != domain.StatusApproved {
		metrics.ApprovalTransitionsTotal.Inc()
		s.log.Info().Msg("seller approval detected")
		go s.promoteLater(ctx, epoch)
	}
	s.lastStatus = status
}

// promoteLater switches the dashboard to the product pane after the
// user-visible notice delay. Cancelled with the synchronizer, and dropped
// by the target if the session instance has moved on meanwhile.
func (s *Synchronizer) promoteLater(ctx context.Context, epoch string) {
	timer := time.NewTimer(s.approvalDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if s.target.PromoteDashboard(epoch) {
		s.log.Info().Msg("seller dashboard switched to product management")
	}
}
