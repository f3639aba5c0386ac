package service

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var reportTracer = otel.Tracer("service/report")

const mostViewedLimit = 5

// ReportService aggregates the numbers behind the admin dashboard. One
// response feeds every panel, so the table fetches fan out concurrently.
type ReportService struct {
	catalog   port.CatalogStore
	profiles  port.ProfileStore
	favorites port.FavoriteStore
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewReportService creates the reporting service.
func NewReportService(catalog port.CatalogStore, profiles port.ProfileStore, favorites port.FavoriteStore, metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{catalog: catalog, profiles: profiles, favorites: favorites, metrics: metrics, logger: logger}
}

// Overview builds the dashboard aggregate. Any failed fetch fails the whole
// overview; the panels never render from partial data.
func (s *ReportService) Overview(ctx context.Context) (*domain.Overview, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Overview")
	defer span.End()

	var (
		commands  []domain.Command
		profiles  []domain.Profile
		favorites int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.catalog.ListCommands(gctx, domain.CommandFilter{})
		if err != nil {
			return err
		}
		commands = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.profiles.ListProfiles(gctx)
		if err != nil {
			return err
		}
		profiles = rows
		return nil
	})
	g.Go(func() error {
		n, err := s.favorites.CountFavorites(gctx)
		if err != nil {
			return err
		}
		favorites = n
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("report: overview fetch failed", zap.Error(err))
		return nil, err
	}

	overview := &domain.Overview{
		TotalUsers:      len(profiles),
		UsersByStatus:   map[string]int{},
		TotalCommands:   len(commands),
		ByCategory:      map[string]int{},
		ByLevel:         map[string]int{},
		TotalFavorites:  favorites,
		GeneratedAtUnix: time.Now().Unix(),
	}
	for _, p := range profiles {
		overview.UsersByStatus[string(p.Status)]++
	}
	for _, cmd := range commands {
		if cmd.IsActive {
			overview.ActiveCommands++
		}
		overview.ByCategory[cmd.Category]++
		overview.ByLevel[string(cmd.Level)]++
		overview.TotalViews += cmd.Views
		overview.TotalCopies += cmd.Copies
	}
	overview.MostViewed = mostViewed(commands, mostViewedLimit)

	// The persisted totals lag behind writes that happened through this
	// process; the in-memory counters give the dashboard the delta since
	// the last restart.
	views, copies := s.metrics.CounterSnapshot()
	overview.ViewsSinceStart = int(views)
	overview.CopiesSinceStart = int(copies)

	return overview, nil
}

func mostViewed(commands []domain.Command, limit int) []domain.CommandStat {
	sorted := make([]domain.Command, len(commands))
	copy(sorted, commands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Views > sorted[j].Views
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	stats := make([]domain.CommandStat, 0, len(sorted))
	for _, cmd := range sorted {
		stats = append(stats, domain.CommandStat{
			ID:     cmd.ID,
			Title:  cmd.Title,
			Views:  cmd.Views,
			Copies: cmd.Copies,
		})
	}
	return stats
}
