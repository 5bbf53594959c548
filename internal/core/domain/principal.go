package domain

import (
	"encoding/json"
	"strings"
)

// Role identifies the account type of an authenticated principal.
type Role string

const (
	RoleAnonymous Role = ""
	RoleAdmin     Role = "admin"
	RoleSeller    Role = "seller"
	RoleCustomer  Role = "customer"
)

// HydrationOrder is the priority in which persisted credentials are probed
// when restoring a session. The first role with a complete, parseable
// credential pair wins; the others are ignored even when also present.
var HydrationOrder = []Role{RoleAdmin, RoleSeller, RoleCustomer}

// ParseRole maps a raw role string to a Role. Anonymous is not a valid
// input here: it is a state, not something a caller may request.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSeller:
		return RoleSeller, true
	case RoleCustomer:
		return RoleCustomer, true
	}
	return RoleAnonymous, false
}

// OnboardingStatus is a seller's approval state as reported by the
// marketplace backend.
type OnboardingStatus string

const (
	StatusUnknown   OnboardingStatus = "unknown"
	StatusPending   OnboardingStatus = "pending"
	StatusApproved  OnboardingStatus = "approved"
	StatusRejected  OnboardingStatus = "rejected"
	StatusSuspended OnboardingStatus = "suspended"
)

// NormalizeStatus maps an arbitrary backend status string onto the closed
// enumeration. Matching is case-insensitive; an unrecognized non-empty
// value is treated as pending so that unexpected input never grants more
// access than a fresh application would have.
func NormalizeStatus(raw string) OnboardingStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return StatusUnknown
	case "pending":
		return StatusPending
	case "approved":
		return StatusApproved
	case "rejected":
		return StatusRejected
	case "suspended":
		return StatusSuspended
	default:
		return StatusPending
	}
}

// StatusFromProfile extracts an onboarding status from a raw seller
// profile. The backend is inconsistent about the field name (status vs
// accountStatus), so both are probed. Missing or unreadable fields yield
// StatusUnknown.
func StatusFromProfile(profile json.RawMessage) OnboardingStatus {
	var fields struct {
		Status        string `json:"status"`
		AccountStatus string `json:"accountStatus"`
	}
	if err := json.Unmarshal(profile, &fields); err != nil {
		return StatusUnknown
	}
	raw := fields.Status
	if raw == "" {
		raw = fields.AccountStatus
	}
	if raw == "" {
		return StatusUnknown
	}
	return NormalizeStatus(raw)
}

// Principal is the identity a session currently holds. Exactly one
// non-anonymous variant exists at a time: Role is the tag, Token and
// Profile belong to that role, and SellerStatus is meaningful only when
// Role is RoleSeller.
type Principal struct {
	Role         Role             `json:"role"`
	Token        string           `json:"-"`
	Profile      json.RawMessage  `json:"profile,omitempty"`
	SellerStatus OnboardingStatus `json:"seller_status,omitempty"`
}

// Anonymous returns the zero principal.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

func (p Principal) IsAnonymous() bool {
	return p.Role == RoleAnonymous
}

// IsApproved reports whether the principal is a seller cleared to sell.
func (p Principal) IsApproved() bool {
	return p.Role == RoleSeller && p.SellerStatus == StatusApproved
}
