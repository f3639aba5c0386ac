package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Catálogo de comandos — /v1/commands
// ============================================================

// listCommandsHandler serves the user-facing catalog: active commands only,
// with optional category/level/search filters.
func listCommandsHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/commands")
		defer span.End()

		filter := domain.CommandFilter{
			Category:   r.URL.Query().Get("category"),
			Level:      domain.Level(r.URL.Query().Get("level")),
			Search:     r.URL.Query().Get("search"),
			OnlyActive: true,
		}
		// Admins see inactive rows too.
		if profile := ProfileFromContext(ctx); profile != nil && profile.IsAdmin() {
			filter.OnlyActive = r.URL.Query().Get("include_inactive") != "true"
		}

		rows, err := commands.List(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int("commands.count", len(rows)))
		writeJSON(w, http.StatusOK, rows)
	}
}

func getCommandHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/commands/{id}")
		defer span.End()

		cmd, err := commands.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, cmd)
	}
}

// registerViewHandler counts one catalog view for the command.
func registerViewHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/commands/{id}/view")
		defer span.End()

		cmd, err := commands.RegisterView(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, cmd)
	}
}

// registerCopyHandler counts one prompt copy and bumps the user's personal
// usage counter.
func registerCopyHandler(commands *service.CommandContext, users *service.UserContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/commands/{id}/copy")
		defer span.End()

		cmd, err := commands.RegisterCopy(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		session := SessionFromContext(ctx)
		if err := users.RegisterUsage(ctx, session.UserID); err != nil {
			// The copy already counted; the personal counter catches up later.
			logger.Warn("commands: usage counter failed",
				zap.String("user_id", session.UserID), zap.Error(err))
		}

		writeJSON(w, http.StatusOK, cmd)
	}
}

// ============================================================
// Administração do catálogo (admin)
// ============================================================

func createCommandHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/commands")
		defer span.End()

		var cmd domain.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}
		if cmd.Title == "" {
			writeError(w, http.StatusBadRequest, "Título é obrigatório")
			return
		}
		if cmd.Prompt == "" {
			writeError(w, http.StatusBadRequest, "Prompt é obrigatório")
			return
		}
		if cmd.Level != "" && !cmd.Level.Valid() {
			writeError(w, http.StatusBadRequest, "Nível inválido")
			return
		}

		created, err := commands.Add(ctx, &cmd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func updateCommandHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/commands/{id}")
		defer span.End()

		var patch domain.CommandPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}
		if patch.Level != nil && !patch.Level.Valid() {
			writeError(w, http.StatusBadRequest, "Nível inválido")
			return
		}

		updated, err := commands.Update(ctx, chi.URLParam(r, "id"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteCommandHandler(commands *service.CommandContext, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/commands/{id}")
		defer span.End()

		if err := commands.Delete(ctx, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
