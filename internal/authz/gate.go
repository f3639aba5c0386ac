// Package authz holds the route authorization gate. The decision is a pure
// function over the session and profile, evaluated once before the request
// is handled, never as a side effect after the fact.
package authz

import "github.com/easyscalepro/easyscale-api/internal/domain"

// Decision is the outcome of the gate.
type Decision int

const (
	// Allow lets the request through.
	Allow Decision = iota
	// RedirectLogin means there is no usable session.
	RedirectLogin
	// RedirectForbidden means the session exists but the profile lacks the
	// required role or an active status.
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// Decide evaluates the gate. requiredRole empty means any authenticated
// session is enough. With a required role, the profile must match it exactly
// AND hold status ativo.
func Decide(session *domain.Session, profile *domain.Profile, requiredRole domain.Role) Decision {
	if session == nil {
		return RedirectLogin
	}
	if requiredRole == "" {
		return Allow
	}
	if profile == nil {
		return RedirectForbidden
	}
	if profile.Role != requiredRole || profile.Status != domain.StatusAtivo {
		return RedirectForbidden
	}
	return Allow
}
