// Package guard holds the single canonical authorization decision for
// protected routes. Every guard in the HTTP layer calls Resolve; role tags
// are derived from the principal alone, never from a second authority that
// could disagree with it.
package guard

import "github.com/shopsphere/session-gateway/internal/core/domain"

// Decision is the outcome of evaluating a navigation against the current
// principal.
type Decision string

const (
	// Defer means the session has not finished hydrating. Callers must
	// render nothing rather than redirect: before hydration the state is
	// "authorization unknown", not "unauthorized".
	Defer Decision = "defer"
	// Allow lets the requested view render.
	Allow Decision = "allow"
	// RedirectToLogin means no usable identity is present at all.
	RedirectToLogin Decision = "redirect_to_login"
	// RedirectToUnauthorized means an identity is present but its role is
	// not accepted by the route. Distinct from RedirectToLogin: the user
	// needs a different account type, not a login form.
	RedirectToUnauthorized Decision = "redirect_to_unauthorized"
)

// RoleSet is the set of role tags a route accepts.
type RoleSet map[domain.Role]struct{}

// Roles builds a RoleSet from its members.
func Roles(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports membership of a role tag.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Resolve evaluates a route's required role set against the principal.
//
//  1. Session not ready → Defer.
//  2. Anonymous principal, or a principal with an empty token → RedirectToLogin.
//  3. Role tag not in the required set → RedirectToUnauthorized.
//  4. Otherwise → Allow.
func Resolve(ready bool, p domain.Principal, required RoleSet) Decision {
	if !ready {
		return Defer
	}
	if p.IsAnonymous() || p.Token == "" {
		return RedirectToLogin
	}
	if !required.Contains(p.Role) {
		return RedirectToUnauthorized
	}
	return Allow
}
