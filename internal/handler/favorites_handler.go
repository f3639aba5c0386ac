package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Favoritos — /v1/favorites
// ============================================================

func listFavoritesHandler(favorites *service.FavoriteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/favorites")
		defer span.End()

		session := SessionFromContext(ctx)
		rows, err := favorites.List(ctx, session.UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, rows)
	}
}

// toggleFavoriteHandler flips the favorite state and reports the result, so
// the frontend does not have to track it optimistically.
func toggleFavoriteHandler(favorites *service.FavoriteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/favorites/{commandId}")
		defer span.End()

		session := SessionFromContext(ctx)
		favorited, err := favorites.Toggle(ctx, session.UserID, chi.URLParam(r, "commandId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"favorited": favorited})
	}
}
