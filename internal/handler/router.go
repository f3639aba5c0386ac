package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

var tracer = otel.Tracer("handler")

// Services groups everything the router depends on.
type Services struct {
	Auth      *service.AuthService
	Commands  *service.CommandContext
	Users     *service.UserContext
	Favorites *service.FavoriteService
	Admin     *service.AdminService
	Reports   *service.ReportService
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the EasyScale web frontend.
func NewRouter(svcs Services, authMw *AuthMiddleware, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svcs.Commands, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 🔐 Autenticação
		// =============================================
		r.Post("/auth/login", authLoginHandler(svcs.Auth, logger))
		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireSession)
			r.Post("/auth/logout", authLogoutHandler(svcs.Auth, logger))
			r.Get("/auth/session", authSessionHandler(logger))
		})

		// =============================================
		// 2. 📚 Catálogo de comandos
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireSession)
			r.Get("/commands", listCommandsHandler(svcs.Commands, logger))
			r.Get("/commands/{id}", getCommandHandler(svcs.Commands, logger))
			r.Post("/commands/{id}/view", registerViewHandler(svcs.Commands, logger))
			r.Post("/commands/{id}/copy", registerCopyHandler(svcs.Commands, svcs.Users, logger))

			// Favoritos
			r.Get("/favorites", listFavoritesHandler(svcs.Favorites, logger))
			r.Put("/favorites/{commandId}", toggleFavoriteHandler(svcs.Favorites, logger))
		})

		// =============================================
		// 3. 🛡 Administração
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireAdmin)

			r.Post("/commands", createCommandHandler(svcs.Commands, logger))
			r.Put("/commands/{id}", updateCommandHandler(svcs.Commands, logger))
			r.Delete("/commands/{id}", deleteCommandHandler(svcs.Commands, logger))

			r.Get("/users", listUsersHandler(svcs.Users, logger))
			r.Get("/users/{id}", getUserHandler(svcs.Users, logger))
			r.Put("/users/{id}", updateUserHandler(svcs.Users, logger))
			r.Delete("/users/{id}", deleteUserHandler(svcs.Users, logger))

			r.Get("/settings/password-policy", getPolicyHandler(svcs.Admin, logger))
			r.Put("/settings/password-policy", updatePolicyHandler(svcs.Admin, logger))
			r.Post("/settings/password-policy/validate", validatePasswordHandler(svcs.Admin, logger))
			r.Post("/settings/password-policy/generate", generatePasswordHandler(svcs.Admin, logger))

			r.Get("/reports/overview", overviewHandler(svcs.Reports, metrics, logger))

			r.Post("/admin/users/{id}/reset-password", resetPasswordHandler(svcs.Admin, logger))
		})
	})

	// Legacy path kept for the deployed frontend.
	r.Group(func(r chi.Router) {
		r.Use(authMw.RequireAdmin)
		r.Post("/api/admin/create-user", createUserHandler(svcs.Admin, logger))
	})

	return r
}

// healthzHandler reports process liveness.
func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports readiness: the catalog must be reachable.
func readyzHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := commands.Load(r.Context()); err != nil {
			logger.Warn("readyz: backend unreachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
