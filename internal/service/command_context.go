// Package service provides the business logic layer (use cases).
// The contexts own the loaded collections: an in-process snapshot that is
// only ever updated with rows the backend returned, never with
// client-constructed objects.
package service

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var cmdTracer = otel.Tracer("service/commands")

const commandSnapshotKey = "commands"

// CommandContext is the single source of truth for the command catalog.
// Reads serve from the cached snapshot; every mutation writes remotely
// first and only then folds the server row into the snapshot, so a failed
// write leaves the snapshot exactly as it was.
type CommandContext struct {
	store   port.CatalogStore
	cache   port.Cache[[]domain.Command]
	metrics *observability.Metrics
	logger  *zap.Logger

	// mu serializes snapshot rewrites; the cache itself is safe for
	// concurrent access but read-modify-write is not.
	mu sync.Mutex
}

// NewCommandContext creates the catalog context.
func NewCommandContext(store port.CatalogStore, cache port.Cache[[]domain.Command], metrics *observability.Metrics, logger *zap.Logger) *CommandContext {
	return &CommandContext{store: store, cache: cache, metrics: metrics, logger: logger}
}

// Load fetches the full catalog and replaces the snapshot wholesale.
// On failure the previous snapshot stays intact.
func (c *CommandContext) Load(ctx context.Context) error {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.Load")
	defer span.End()

	rows, err := c.store.ListCommands(ctx, domain.CommandFilter{})
	if err != nil {
		c.metrics.IncrBackendError("commands")
		c.logger.Error("commands: load failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.cache.Flush()
	c.cache.Set(commandSnapshotKey, rows)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("commands.count", len(rows)))
	return nil
}

// List returns commands matching the filter, from the snapshot when fresh.
func (c *CommandContext) List(ctx context.Context, filter domain.CommandFilter) ([]domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.List")
	defer span.End()

	rows, ok := c.cache.Get(commandSnapshotKey)
	if ok {
		c.metrics.IncrCacheHit("commands")
	} else {
		c.metrics.IncrCacheMiss("commands")
		if err := c.Load(ctx); err != nil {
			return nil, err
		}
		rows, _ = c.cache.Get(commandSnapshotKey)
	}

	return filterCommands(rows, filter), nil
}

// Get returns a single command. The snapshot is tried first; a miss falls
// through to the backend so direct links work before any listing happened.
func (c *CommandContext) Get(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.Get")
	defer span.End()

	if rows, ok := c.cache.Get(commandSnapshotKey); ok {
		for i := range rows {
			if rows[i].ID == id {
				c.metrics.IncrCacheHit("commands")
				cmd := rows[i]
				return &cmd, nil
			}
		}
	}
	c.metrics.IncrCacheMiss("commands")
	return c.store.GetCommand(ctx, id)
}

// Add creates the command remotely and prepends the server row, with its
// backend-assigned id and timestamps, to the snapshot.
func (c *CommandContext) Add(ctx context.Context, cmd *domain.Command) (*domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.Add")
	defer span.End()

	created, err := c.store.CreateCommand(ctx, cmd)
	if err != nil {
		c.metrics.IncrBackendError("commands")
		c.logger.Error("commands: create failed", zap.String("title", cmd.Title), zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if rows, ok := c.cache.Get(commandSnapshotKey); ok {
		c.cache.Set(commandSnapshotKey, append([]domain.Command{*created}, rows...))
	}
	c.mu.Unlock()

	c.logger.Info("commands: created", zap.String("id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// Update patches the command remotely and replaces it in the snapshot with
// the canonical row.
func (c *CommandContext) Update(ctx context.Context, id string, patch domain.CommandPatch) (*domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.Update")
	defer span.End()

	updated, err := c.store.UpdateCommand(ctx, id, patch)
	if err != nil {
		c.metrics.IncrBackendError("commands")
		c.logger.Error("commands: update failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	c.replaceInSnapshot(updated)
	return updated, nil
}

// Delete deactivates the command. The row stays in the backend and in the
// snapshot with is_active off, so admin listings still show it.
func (c *CommandContext) Delete(ctx context.Context, id string) error {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.Delete")
	defer span.End()

	if err := c.store.DeactivateCommand(ctx, id); err != nil {
		c.metrics.IncrBackendError("commands")
		c.logger.Error("commands: deactivate failed", zap.String("id", id), zap.Error(err))
		return err
	}

	cmd, err := c.store.GetCommand(ctx, id)
	if err != nil {
		// The deactivation went through; the snapshot catches up on the
		// next Load.
		c.logger.Warn("commands: re-fetch after deactivate failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	c.replaceInSnapshot(cmd)

	c.logger.Info("commands: deactivated", zap.String("id", id))
	return nil
}

// RegisterView bumps the view counter remotely and folds the updated row in.
func (c *CommandContext) RegisterView(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.RegisterView")
	defer span.End()

	updated, err := c.store.IncrementViews(ctx, id)
	if err != nil {
		c.metrics.IncrBackendError("commands")
		return nil, err
	}

	c.metrics.IncrCommandView()
	c.replaceInSnapshot(updated)
	return updated, nil
}

// RegisterCopy bumps the copy counter remotely and folds the updated row in.
func (c *CommandContext) RegisterCopy(ctx context.Context, id string) (*domain.Command, error) {
	ctx, span := cmdTracer.Start(ctx, "CommandContext.RegisterCopy")
	defer span.End()

	updated, err := c.store.IncrementCopies(ctx, id)
	if err != nil {
		c.metrics.IncrBackendError("commands")
		return nil, err
	}

	c.metrics.IncrCommandCopy()
	c.replaceInSnapshot(updated)
	return updated, nil
}

func (c *CommandContext) replaceInSnapshot(cmd *domain.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, ok := c.cache.Get(commandSnapshotKey)
	if !ok {
		return
	}
	next := make([]domain.Command, len(rows))
	copy(next, rows)
	for i := range next {
		if next[i].ID == cmd.ID {
			next[i] = *cmd
			break
		}
	}
	c.cache.Set(commandSnapshotKey, next)
}

// filterCommands applies the listing filter locally, against the snapshot.
func filterCommands(rows []domain.Command, filter domain.CommandFilter) []domain.Command {
	needle := strings.ToLower(filter.Search)
	out := make([]domain.Command, 0, len(rows))
	for _, cmd := range rows {
		if filter.OnlyActive && !cmd.IsActive {
			continue
		}
		if filter.Category != "" && cmd.Category != filter.Category {
			continue
		}
		if filter.Level != "" && cmd.Level != filter.Level {
			continue
		}
		if needle != "" && !commandTextMatches(cmd, needle) {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func commandTextMatches(cmd domain.Command, needle string) bool {
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
