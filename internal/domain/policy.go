package domain

import "time"

// PasswordPolicy is the configurable password rule set. At most one row is
// active; callers fall back to a hard-coded default when none is configured.
type PasswordPolicy struct {
	ID                      string    `json:"id,omitempty"`
	MinLength               int       `json:"min_length"`
	MaxLength               int       `json:"max_length"`
	RequireUppercase        bool      `json:"require_uppercase"`
	MinUppercase            int       `json:"min_uppercase"`
	RequireLowercase        bool      `json:"require_lowercase"`
	MinLowercase            int       `json:"min_lowercase"`
	RequireNumbers          bool      `json:"require_numbers"`
	MinNumbers              int       `json:"min_numbers"`
	RequireSpecialChars     bool      `json:"require_special_chars"`
	MinSpecialChars         int       `json:"min_special_chars"`
	AllowedSpecialChars     string    `json:"allowed_special_chars"`
	DisallowCommonPasswords bool      `json:"disallow_common_passwords"`
	DisallowPersonalInfo    bool      `json:"disallow_personal_info"`
	HistoryCount            int       `json:"history_count"`
	Active                  bool      `json:"active"`
	UpdatedAt               time.Time `json:"updated_at,omitempty"`
}

// PasswordHistoryEntry stores a bcrypt hash of a previously used password,
// kept so admin resets can enforce the policy's HistoryCount.
type PasswordHistoryEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
