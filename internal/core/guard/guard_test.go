package guard

import (
	"testing"

	"github.com/shopsphere/session-gateway/internal/core/domain"
)

func TestResolve(t *testing.T) {
	adminOnly := Roles(domain.RoleAdmin)
	anyRole := Roles(domain.RoleCustomer, domain.RoleSeller, domain.RoleAdmin)

	seller := domain.Principal{Role: domain.RoleSeller, Token: "tok"}
	admin := domain.Principal{Role: domain.RoleAdmin, Token: "tok"}

	cases := []struct {
		name      string
		ready     bool
		principal domain.Principal
		required  RoleSet
		want      Decision
	}{
		{"not ready suspends instead of deciding", false, seller, adminOnly, Defer},
		{"anonymous goes to login", true, domain.Anonymous(), adminOnly, RedirectToLogin},
		{"empty token goes to login even with role set", true, domain.Principal{Role: domain.RoleSeller}, anyRole, RedirectToLogin},
		{"wrong role goes to unauthorized, not login", true, seller, adminOnly, RedirectToUnauthorized},
		{"matching role allowed", true, admin, adminOnly, Allow},
		{"member of wider set allowed", true, seller, anyRole, Allow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.ready, tc.principal, tc.required); got != tc.want {
				t.Fatalf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

// The two failure outcomes communicate different remediation and must
// stay distinct for every principal shape.
func TestResolve_LoginAndUnauthorizedNeverCollapse(t *testing.T) {
	adminOnly := Roles(domain.RoleAdmin)

	noToken := Resolve(true, domain.Anonymous(), adminOnly)
	wrongRole := Resolve(true, domain.Principal{Role: domain.RoleSeller, Token: "tok"}, adminOnly)

	if noToken == wrongRole {
		t.Fatalf("missing token and wrong role produced the same decision %q", noToken)
	}
}
