package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// Favorites — user/command associations
// ============================================================

// ListFavorites returns the user's favorites ordered by creation, newest first.
func (c *Client) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFavorites")
	defer span.End()

	path := fmt.Sprintf("favorites?user_id=eq.%s&order=created_at.desc", url.QueryEscape(userID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return []domain.Favorite{}, nil
	}

	var rows []domain.Favorite
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return rows, nil
}

// CountFavorites returns the total number of favorite rows across all users.
func (c *Client) CountFavorites(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountFavorites")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "favorites?select=id")
	if err != nil {
		return 0, err
	}
	if isEmpty(body) {
		return 0, nil
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("decode favorites count: %w", err)
	}
	return len(rows), nil
}

// CreateFavorite inserts the association and returns the server row.
// A duplicate (user, command) pair surfaces as ErrConflict from the backend's
// unique constraint.
func (c *Client) CreateFavorite(ctx context.Context, userID, commandID string) (*domain.Favorite, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFavorite")
	defer span.End()

	data := map[string]any{
		"id":         uuid.New().String(),
		"user_id":    userID,
		"command_id": commandID,
	}

	body, err := c.doPost(ctx, "favorites", data)
	if err != nil {
		return nil, err
	}

	var rows []domain.Favorite
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created favorite: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create favorite: empty representation")
	}
	return &rows[0], nil
}

// DeleteFavorite removes the association. Removing an absent pair is a no-op.
func (c *Client) DeleteFavorite(ctx context.Context, userID, commandID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteFavorite")
	defer span.End()

	path := fmt.Sprintf("favorites?user_id=eq.%s&command_id=eq.%s",
		url.QueryEscape(userID), url.QueryEscape(commandID))
	return c.doDelete(ctx, path)
}
