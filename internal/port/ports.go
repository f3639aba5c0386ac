// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}

// CatalogStore defines all data operations on the commands table.
// Implemented by the Supabase adapter (or any other persistence layer).
type CatalogStore interface {
	ListCommands(ctx context.Context, filter domain.CommandFilter) ([]domain.Command, error)
	GetCommand(ctx context.Context, id string) (*domain.Command, error)

	// CreateCommand returns the server-assigned row, never the input echoed
	// back; ids and timestamps come from the backend.
	CreateCommand(ctx context.Context, cmd *domain.Command) (*domain.Command, error)
	UpdateCommand(ctx context.Context, id string, patch domain.CommandPatch) (*domain.Command, error)

	// DeactivateCommand is the delete of the catalog: is_active=false.
	DeactivateCommand(ctx context.Context, id string) error

	IncrementViews(ctx context.Context, id string) (*domain.Command, error)
	IncrementCopies(ctx context.Context, id string) (*domain.Command, error)
}

// ProfileStore defines all data operations on the profiles table.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error)

	// DeactivateProfile is the delete of user management: status inativo.
	DeactivateProfile(ctx context.Context, id string) error

	IncrementCommandsUsed(ctx context.Context, id string) (*domain.Profile, error)
	TouchLastAccess(ctx context.Context, id string) error
}

// FavoriteStore defines the favorites join-table operations.
type FavoriteStore interface {
	ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error)
	CountFavorites(ctx context.Context) (int, error)
	CreateFavorite(ctx context.Context, userID, commandID string) (*domain.Favorite, error)
	DeleteFavorite(ctx context.Context, userID, commandID string) error
}

// PolicyStore defines password-policy and password-history persistence.
type PolicyStore interface {
	ActivePolicy(ctx context.Context) (*domain.PasswordPolicy, error)
	UpsertPolicy(ctx context.Context, policy *domain.PasswordPolicy) (*domain.PasswordPolicy, error)

	ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AppendPasswordHistory(ctx context.Context, userID, hash string) error
}

// AuthBackend is the GoTrue surface: session issuance and privileged user
// management. Tokens are minted there, never here.
type AuthBackend interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error

	// AdminCreateUser requires the service role key and must only be called
	// from the privileged admin endpoint.
	AdminCreateUser(ctx context.Context, email, password string) (userID string, err error)
	AdminSetPassword(ctx context.Context, userID, password string) error
}
