package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// Profiles — application user records joined to auth by id
// ============================================================

// ListProfiles returns every profile, newest first.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "profiles?order=created_at.desc")
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return []domain.Profile{}, nil
	}

	var rows []domain.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return rows, nil
}

// GetProfile fetches a profile by the auth user id.
func (c *Client) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()

	path := fmt.Sprintf("profiles?id=eq.%s&limit=1", url.QueryEscape(id))
	return c.fetchOneProfile(ctx, path, id)
}

// GetProfileByEmail fetches a profile by email, case as stored.
func (c *Client) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByEmail")
	defer span.End()

	path := fmt.Sprintf("profiles?email=eq.%s&limit=1", url.QueryEscape(email))
	return c.fetchOneProfile(ctx, path, email)
}

func (c *Client) fetchOneProfile(ctx context.Context, path, key string) (*domain.Profile, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: key}
	}

	var rows []domain.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: key}
	}
	return &rows[0], nil
}

// CreateProfile inserts a profile row keyed by the auth user id and returns
// the server row.
func (c *Client) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()

	data := map[string]any{
		"id":            p.ID,
		"email":         p.Email,
		"name":          p.Name,
		"company":       p.Company,
		"phone":         p.Phone,
		"role":          string(p.Role),
		"status":        string(p.Status),
		"commands_used": 0,
	}

	body, err := c.doPost(ctx, "profiles", data)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	var rows []domain.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create profile: empty representation")
	}
	return &rows[0], nil
}

// UpdateProfile patches the editable fields and re-fetches the canonical row.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()

	data := map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if patch.Name != nil {
		data["name"] = *patch.Name
	}
	if patch.Company != nil {
		data["company"] = *patch.Company
	}
	if patch.Phone != nil {
		data["phone"] = *patch.Phone
	}
	if patch.Role != nil {
		data["role"] = string(*patch.Role)
	}
	if patch.Status != nil {
		data["status"] = string(*patch.Status)
	}

	path := fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(id))
	if err := c.doPatch(ctx, path, data); err != nil {
		return nil, err
	}

	return c.GetProfile(ctx, id)
}

// DeactivateProfile soft-deletes: the row stays, status becomes inativo.
func (c *Client) DeactivateProfile(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeactivateProfile")
	defer span.End()

	path := fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(id))
	return c.doPatch(ctx, path, map[string]any{
		"status":     string(domain.StatusInativo),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// IncrementCommandsUsed bumps the per-user usage counter by one and returns
// the updated profile.
func (c *Client) IncrementCommandsUsed(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementCommandsUsed")
	defer span.End()

	p, err := c.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(id))
	if err := c.doPatch(ctx, path, map[string]any{"commands_used": p.CommandsUsed + 1}); err != nil {
		return nil, err
	}

	return c.GetProfile(ctx, id)
}

// TouchLastAccess records the moment of a successful sign-in.
func (c *Client) TouchLastAccess(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.TouchLastAccess")
	defer span.End()

	path := fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(id))
	return c.doPatch(ctx, path, map[string]any{
		"last_access": time.Now().UTC().Format(time.RFC3339),
	})
}
