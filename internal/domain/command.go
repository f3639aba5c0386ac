package domain

import "time"

// Level is the difficulty level shown on command cards.
type Level string

const (
	LevelIniciante     Level = "iniciante"
	LevelIntermediario Level = "intermediário"
	LevelAvancado      Level = "avançado"
)

// Valid reports whether the level is one of the known values.
func (l Level) Valid() bool {
	return l == LevelIniciante || l == LevelIntermediario || l == LevelAvancado
}

// Command is a stored prompt template distributed to end users.
// Views and copies only ever grow; removal is a soft deactivation.
type Command struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Level         Level     `json:"level"`
	Prompt        string    `json:"prompt"`
	Tags          []string  `json:"tags"`
	EstimatedTime string    `json:"estimated_time"`
	Views         int       `json:"views"`
	Copies        int       `json:"copies"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommandPatch carries the admin-editable fields of a command.
// Nil fields are left untouched by the update.
type CommandPatch struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Level         *Level    `json:"level,omitempty"`
	Prompt        *string   `json:"prompt,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	EstimatedTime *string   `json:"estimated_time,omitempty"`
	IsActive      *bool     `json:"is_active,omitempty"`
}

// CommandFilter narrows catalog listings.
type CommandFilter struct {
	Category   string
	Level      Level
	Search     string // matched against title/description/tags, case-insensitive
	OnlyActive bool
}

// Favorite is the user/command association shown in the favorites page.
// Unique per (UserID, CommandID); integrity is owned by the backend.
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CommandID string    `json:"command_id"`
	CreatedAt time.Time `json:"created_at"`
}
