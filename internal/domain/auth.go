package domain

// ============================================================
// Auth — Request / Response types (matches frontend API contract)
// ============================================================

// Session is the externally managed Supabase session as seen by this service.
// Tokens are minted by GoTrue; we validate and carry them, we never sign.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /v1/auth/login.
type LoginResponse struct {
	Session *Session `json:"session"`
	Profile *Profile `json:"profile"`
}

// CreateUserRequest is the body for POST /api/admin/create-user.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CreateUserResponse is the success body for POST /api/admin/create-user.
type CreateUserResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
}

// ResetPasswordRequest is the body for POST /v1/admin/users/{id}/reset-password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ProfilePatch carries the admin-editable fields of a profile.
// Nil fields are left untouched by the update.
type ProfilePatch struct {
	Name    *string `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Role    *Role   `json:"role,omitempty"`
	Status  *Status `json:"status,omitempty"`
}
