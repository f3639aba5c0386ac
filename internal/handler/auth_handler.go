package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Autenticação — /v1/auth
// ============================================================

func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		resp, err := authSvc.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func authLogoutHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		session := SessionFromContext(ctx)
		if err := authSvc.SignOut(ctx, session.AccessToken); err != nil {
			// Sign-out is best effort client-side; a failed revocation still
			// answers OK so the frontend drops its local session.
			logger.Warn("auth: sign-out failed", zap.String("user_id", session.UserID), zap.Error(err))
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func authSessionHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/auth/session")
		defer span.End()

		writeJSON(w, http.StatusOK, domain.LoginResponse{
			Session: SessionFromContext(r.Context()),
			Profile: ProfileFromContext(r.Context()),
		})
	}
}
