package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var favTracer = otel.Tracer("service/favorites")

// FavoriteService manages the user's favorite commands. No snapshot here;
// favorites are small per-user lists and always read through.
type FavoriteService struct {
	favorites port.FavoriteStore
	catalog   port.CatalogStore
	logger    *zap.Logger
}

// NewFavoriteService creates the favorites service.
func NewFavoriteService(favorites port.FavoriteStore, catalog port.CatalogStore, logger *zap.Logger) *FavoriteService {
	return &FavoriteService{favorites: favorites, catalog: catalog, logger: logger}
}

// List returns the user's favorites, newest first.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	ctx, span := favTracer.Start(ctx, "FavoriteService.List")
	defer span.End()

	return s.favorites.ListFavorites(ctx, userID)
}

// Toggle flips the favorite state of a command for the user and reports the
// resulting state. The backend's unique constraint makes a concurrent double
// insert surface as a conflict, which Toggle resolves as already-favorited.
func (s *FavoriteService) Toggle(ctx context.Context, userID, commandID string) (favorited bool, err error) {
	ctx, span := favTracer.Start(ctx, "FavoriteService.Toggle")
	defer span.End()

	if _, err := s.catalog.GetCommand(ctx, commandID); err != nil {
		return false, err
	}

	current, err := s.favorites.ListFavorites(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, f := range current {
		if f.CommandID == commandID {
			if err := s.favorites.DeleteFavorite(ctx, userID, commandID); err != nil {
				return true, err
			}
			s.logger.Debug("favorites: removed",
				zap.String("user_id", userID), zap.String("command_id", commandID))
			return false, nil
		}
	}

	if _, err := s.favorites.CreateFavorite(ctx, userID, commandID); err != nil {
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return true, nil
		}
		return false, err
	}
	s.logger.Debug("favorites: added",
		zap.String("user_id", userID), zap.String("command_id", commandID))
	return true, nil
}
