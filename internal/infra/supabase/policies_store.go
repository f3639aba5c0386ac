package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// Password policy + history
// ============================================================

// ActivePolicy returns the single active policy row, or ErrNotFound when the
// table has never been configured. Callers fall back to the built-in default.
func (c *Client) ActivePolicy(ctx context.Context) (*domain.PasswordPolicy, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ActivePolicy")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "password_policies?active=eq.true&limit=1")
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, &domain.ErrNotFound{Resource: "password_policy", ID: "active"}
	}

	var rows []domain.PasswordPolicy
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode password policy: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "password_policy", ID: "active"}
	}
	return &rows[0], nil
}

// UpsertPolicy saves the policy as the active row. An existing active row is
// patched in place; otherwise a new row is inserted.
func (c *Client) UpsertPolicy(ctx context.Context, policy *domain.PasswordPolicy) (*domain.PasswordPolicy, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertPolicy")
	defer span.End()

	data := policyRow(policy)

	current, err := c.ActivePolicy(ctx)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		data["id"] = uuid.New().String()
		body, err := c.doPost(ctx, "password_policies", data)
		if err != nil {
			return nil, fmt.Errorf("create password policy: %w", err)
		}
		var rows []domain.PasswordPolicy
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode created password policy: %w", err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("create password policy: empty representation")
		}
		return &rows[0], nil
	}

	path := fmt.Sprintf("password_policies?id=eq.%s", url.QueryEscape(current.ID))
	if err := c.doPatch(ctx, path, data); err != nil {
		return nil, err
	}
	return c.ActivePolicy(ctx)
}

func policyRow(p *domain.PasswordPolicy) map[string]any {
	return map[string]any{
		"min_length":                p.MinLength,
		"max_length":                p.MaxLength,
		"require_uppercase":         p.RequireUppercase,
		"min_uppercase":             p.MinUppercase,
		"require_lowercase":         p.RequireLowercase,
		"min_lowercase":             p.MinLowercase,
		"require_numbers":           p.RequireNumbers,
		"min_numbers":               p.MinNumbers,
		"require_special_chars":     p.RequireSpecialChars,
		"min_special_chars":         p.MinSpecialChars,
		"allowed_special_chars":     p.AllowedSpecialChars,
		"disallow_common_passwords": p.DisallowCommonPasswords,
		"disallow_personal_info":    p.DisallowPersonalInfo,
		"history_count":             p.HistoryCount,
		"active":                    true,
		"updated_at":                time.Now().UTC().Format(time.RFC3339),
	}
}

// ListPasswordHistory returns the user's most recent password hashes,
// newest first, capped at limit.
func (c *Client) ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPasswordHistory")
	defer span.End()

	path := fmt.Sprintf("password_history?user_id=eq.%s&order=created_at.desc&limit=%d",
		url.QueryEscape(userID), limit)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return []domain.PasswordHistoryEntry{}, nil
	}

	var rows []domain.PasswordHistoryEntry
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode password history: %w", err)
	}
	return rows, nil
}

// AppendPasswordHistory records a new password hash for the user.
func (c *Client) AppendPasswordHistory(ctx context.Context, userID, hash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.AppendPasswordHistory")
	defer span.End()

	_, err := c.doPost(ctx, "password_history", map[string]any{
		"id":            uuid.New().String(),
		"user_id":       userID,
		"password_hash": hash,
	})
	return err
}
