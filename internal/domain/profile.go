package domain

import "time"

// Role is the application-level role stored on the profile row.
// It is distinct from the Supabase auth identity, which carries no role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleModerator
}

// Status values follow the product's Portuguese vocabulary.
type Status string

const (
	StatusAtivo    Status = "ativo"
	StatusInativo  Status = "inativo"
	StatusSuspenso Status = "suspenso"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusAtivo || s == StatusInativo || s == StatusSuspenso
}

// Profile is the application user record, joined to the auth identity by ID.
// Profiles are never hard-deleted in the normal flow; deactivation is a
// status change.
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Company      string     `json:"company,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	CommandsUsed int        `json:"commands_used"`
	LastAccess   *time.Time `json:"last_access,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the profile holds the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanSignIn reports whether the account status allows a new session.
func (p *Profile) CanSignIn() bool {
	return p.Status == StatusAtivo
}
