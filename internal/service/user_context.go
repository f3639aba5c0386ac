package service

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var userTracer = otel.Tracer("service/users")

const profileSnapshotKey = "profiles"

// UserContext is the single source of truth for the user management list.
// Same discipline as CommandContext: remote write first, snapshot second,
// always with the server row.
type UserContext struct {
	store   port.ProfileStore
	cache   port.Cache[[]domain.Profile]
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

// NewUserContext creates the user management context.
func NewUserContext(store port.ProfileStore, cache port.Cache[[]domain.Profile], metrics *observability.Metrics, logger *zap.Logger) *UserContext {
	return &UserContext{store: store, cache: cache, metrics: metrics, logger: logger}
}

// Load fetches every profile and replaces the snapshot wholesale.
// On failure the previous snapshot stays intact.
func (c *UserContext) Load(ctx context.Context) error {
	ctx, span := userTracer.Start(ctx, "UserContext.Load")
	defer span.End()

	rows, err := c.store.ListProfiles(ctx)
	if err != nil {
		c.metrics.IncrBackendError("profiles")
		c.logger.Error("users: load failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.cache.Flush()
	c.cache.Set(profileSnapshotKey, rows)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("users.count", len(rows)))
	return nil
}

// List returns all profiles, from the snapshot when fresh.
func (c *UserContext) List(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := userTracer.Start(ctx, "UserContext.List")
	defer span.End()

	rows, ok := c.cache.Get(profileSnapshotKey)
	if ok {
		c.metrics.IncrCacheHit("profiles")
		return rows, nil
	}

	c.metrics.IncrCacheMiss("profiles")
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	rows, _ = c.cache.Get(profileSnapshotKey)
	return rows, nil
}

// Get returns a single profile, falling through to the backend on a miss.
func (c *UserContext) Get(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, span := userTracer.Start(ctx, "UserContext.Get")
	defer span.End()

	if rows, ok := c.cache.Get(profileSnapshotKey); ok {
		for i := range rows {
			if rows[i].ID == id {
				c.metrics.IncrCacheHit("profiles")
				p := rows[i]
				return &p, nil
			}
		}
	}
	c.metrics.IncrCacheMiss("profiles")
	return c.store.GetProfile(ctx, id)
}

// Add folds a server-created profile row into the snapshot. Profile rows are
// created by the auth and admin services; the context only tracks them.
func (c *UserContext) Add(p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rows, ok := c.cache.Get(profileSnapshotKey); ok {
		c.cache.Set(profileSnapshotKey, append([]domain.Profile{*p}, rows...))
	}
}

// Update patches the profile remotely and replaces it in the snapshot with
// the canonical row.
func (c *UserContext) Update(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	ctx, span := userTracer.Start(ctx, "UserContext.Update")
	defer span.End()

	if patch.Role != nil && !patch.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "Papel inválido"}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "Status inválido"}
	}

	updated, err := c.store.UpdateProfile(ctx, id, patch)
	if err != nil {
		c.metrics.IncrBackendError("profiles")
		c.logger.Error("users: update failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	c.replaceInSnapshot(updated)
	return updated, nil
}

// Delete deactivates the account: the row stays with status inativo.
func (c *UserContext) Delete(ctx context.Context, id string) error {
	ctx, span := userTracer.Start(ctx, "UserContext.Delete")
	defer span.End()

	if err := c.store.DeactivateProfile(ctx, id); err != nil {
		c.metrics.IncrBackendError("profiles")
		c.logger.Error("users: deactivate failed", zap.String("id", id), zap.Error(err))
		return err
	}

	p, err := c.store.GetProfile(ctx, id)
	if err != nil {
		c.logger.Warn("users: re-fetch after deactivate failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	c.replaceInSnapshot(p)

	c.logger.Info("users: deactivated", zap.String("id", id))
	return nil
}

// RegisterUsage bumps the user's commands_used counter and folds the
// updated row in.
func (c *UserContext) RegisterUsage(ctx context.Context, id string) error {
	ctx, span := userTracer.Start(ctx, "UserContext.RegisterUsage")
	defer span.End()

	updated, err := c.store.IncrementCommandsUsed(ctx, id)
	if err != nil {
		c.metrics.IncrBackendError("profiles")
		return err
	}

	c.replaceInSnapshot(updated)
	return nil
}

func (c *UserContext) replaceInSnapshot(p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, ok := c.cache.Get(profileSnapshotKey)
	if !ok {
		return
	}
	next := make([]domain.Profile, len(rows))
	copy(next, rows)
	for i := range next {
		if next[i].ID == p.ID {
			next[i] = *p
			break
		}
	}
	c.cache.Set(profileSnapshotKey, next)
}
