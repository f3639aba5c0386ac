package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in the Supabase backend call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrPasswordPolicy carries the full list of policy violations so the
// frontend can render them inline; violations are collected, not
// short-circuited.
type ErrPasswordPolicy struct {
	Violations []string
}

func (e *ErrPasswordPolicy) Error() string {
	if len(e.Violations) == 0 {
		return "senha não atende à política de senhas"
	}
	return e.Violations[0]
}

// ErrUnauthorized indicates invalid credentials or a missing/invalid token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrSessionExpired indicates the backend rejected a previously valid
// session token. Mapped uniformly for every verb by the Supabase client.
type ErrSessionExpired struct{}

func (e *ErrSessionExpired) Error() string {
	return "Sessão expirada. Faça login novamente"
}

// ErrForbidden indicates the user lacks the role or status for the
// operation. Action is kept for logs; the message shown to the user stays
// generic.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return "Acesso negado"
}

// ErrAccountBlocked indicates the profile status blocks sign-in.
type ErrAccountBlocked struct {
	Status Status
}

func (e *ErrAccountBlocked) Error() string {
	return fmt.Sprintf("Conta %s", e.Status)
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
