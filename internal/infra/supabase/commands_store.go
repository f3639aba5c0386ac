package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// Commands — catalog CRUD via PostgREST
// ============================================================

// ListCommands returns the catalog ordered by creation, newest first.
// Search is applied locally over title/description/tags; category and level
// filters push down to PostgREST.
func (c *Client) ListCommands(ctx context.Context, filter domain.CommandFilter) ([]domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCommands")
	defer span.End()

	path := "commands?order=created_at.desc"
	if filter.OnlyActive {
		path += "&is_active=eq.true"
	}
	if filter.Category != "" {
		path += "&category=eq." + url.QueryEscape(filter.Category)
	}
	if filter.Level != "" {
		path += "&level=eq." + url.QueryEscape(string(filter.Level))
	}

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.Command
	if isEmpty(body) {
		return []domain.Command{}, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}

	if filter.Search == "" {
		return rows, nil
	}

	needle := strings.ToLower(filter.Search)
	filtered := make([]domain.Command, 0, len(rows))
	for _, cmd := range rows {
		if commandMatches(cmd, needle) {
			filtered = append(filtered, cmd)
		}
	}
	return filtered, nil
}

func commandMatches(cmd domain.Command, needle string) bool {
	if strings.Contains(strings.ToLower(cmd.Title), needle) ||
		strings.Contains(strings.ToLower(cmd.Description), needle) {
		return true
	}
	for _, tag := range cmd.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// GetCommand fetches a single command by id.
func (c *Client) GetCommand(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCommand")
	defer span.End()

	path := fmt.Sprintf("commands?id=eq.%s&limit=1", url.QueryEscape(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, &domain.ErrNotFound{Resource: "command", ID: id}
	}

	var rows []domain.Command
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "command", ID: id}
	}
	return &rows[0], nil
}

// CreateCommand inserts a command and returns the server row with the
// backend-assigned id and timestamps.
func (c *Client) CreateCommand(ctx context.Context, cmd *domain.Command) (*domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCommand")
	defer span.End()

	tags := cmd.Tags
	if tags == nil {
		tags = []string{}
	}
	data := map[string]any{
		"title":          cmd.Title,
		"description":    cmd.Description,
		"category":       cmd.Category,
		"level":          string(cmd.Level),
		"prompt":         cmd.Prompt,
		"tags":           tags,
		"estimated_time": cmd.EstimatedTime,
		"views":          0,
		"copies":         0,
		"is_active":      cmd.IsActive,
	}

	body, err := c.doPost(ctx, "commands", data)
	if err != nil {
		return nil, fmt.Errorf("create command: %w", err)
	}

	var rows []domain.Command
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created command: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create command: empty representation")
	}
	return &rows[0], nil
}

// UpdateCommand patches the editable fields and re-fetches the canonical row.
func (c *Client) UpdateCommand(ctx context.Context, id string, patch domain.CommandPatch) (*domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCommand")
	defer span.End()

	data := map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if patch.Title != nil {
		data["title"] = *patch.Title
	}
	if patch.Description != nil {
		data["description"] = *patch.Description
	}
	if patch.Category != nil {
		data["category"] = *patch.Category
	}
	if patch.Level != nil {
		data["level"] = string(*patch.Level)
	}
	if patch.Prompt != nil {
		data["prompt"] = *patch.Prompt
	}
	if patch.Tags != nil {
		data["tags"] = *patch.Tags
	}
	if patch.EstimatedTime != nil {
		data["estimated_time"] = *patch.EstimatedTime
	}
	if patch.IsActive != nil {
		data["is_active"] = *patch.IsActive
	}

	path := fmt.Sprintf("commands?id=eq.%s", url.QueryEscape(id))
	if err := c.doPatch(ctx, path, data); err != nil {
		return nil, err
	}

	return c.GetCommand(ctx, id)
}

// DeactivateCommand soft-deletes: the row stays, is_active flips off.
func (c *Client) DeactivateCommand(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeactivateCommand")
	defer span.End()

	path := fmt.Sprintf("commands?id=eq.%s", url.QueryEscape(id))
	return c.doPatch(ctx, path, map[string]any{
		"is_active":  false,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// IncrementViews bumps the view counter by one and returns the updated row.
// Read-modify-write through PostgREST; the counter never goes down.
func (c *Client) IncrementViews(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementViews")
	defer span.End()

	return c.incrementCounter(ctx, id, "views")
}

// IncrementCopies bumps the copy counter by one and returns the updated row.
func (c *Client) IncrementCopies(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementCopies")
	defer span.End()

	return c.incrementCounter(ctx, id, "copies")
}

func (c *Client) incrementCounter(ctx context.Context, id, column string) (*domain.Command, error) {
	cmd, err := c.GetCommand(ctx, id)
	if err != nil {
		return nil, err
	}

	current := cmd.Views
	if column == "copies" {
		current = cmd.Copies
	}

	path := fmt.Sprintf("commands?id=eq.%s", url.QueryEscape(id))
	if err := c.doPatch(ctx, path, map[string]any{column: current + 1}); err != nil {
		return nil, err
	}

	return c.GetCommand(ctx, id)
}
