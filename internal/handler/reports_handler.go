package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Relatórios — /v1/reports (admin)
// ============================================================

func overviewHandler(reports *service.ReportService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/overview")
		defer span.End()

		start := time.Now()
		overview, err := reports.Overview(ctx)
		metrics.RecordRequestDuration("reports_overview", time.Since(start))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, overview)
	}
}
