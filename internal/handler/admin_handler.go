package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Operações privilegiadas — criação de usuários e reset de senha
// ============================================================

// createUserErrorResponse mirrors the failure shape of the create-user
// contract: success false plus the error text.
type createUserErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// createUserHandler serves POST /api/admin/create-user. The path is part of
// the frontend contract and kept as is.
func createUserHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/admin/create-user")
		defer span.End()

		var req domain.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, createUserErrorResponse{Error: "Corpo da requisição inválido"})
			return
		}

		resp, err := admin.CreateUser(ctx, req)
		if err != nil {
			status := http.StatusInternalServerError
			var validation *domain.ErrValidation
			var policyErr *domain.ErrPasswordPolicy
			var conflict *domain.ErrConflict
			switch {
			case errors.As(err, &validation):
				status = http.StatusBadRequest
			case errors.As(err, &policyErr):
				status = http.StatusBadRequest
				writeJSON(w, status, createUserErrorResponse{Error: strings.Join(policyErr.Violations, "; ")})
				return
			case errors.As(err, &conflict):
				status = http.StatusBadRequest
			}
			logger.Warn("admin: create user failed", zap.Int("status", status), zap.Error(err))
			writeJSON(w, status, createUserErrorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func resetPasswordHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/users/{id}/reset-password")
		defer span.End()

		var req domain.ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}
		if req.NewPassword == "" {
			writeError(w, http.StatusBadRequest, "Nova senha é obrigatória")
			return
		}

		if err := admin.ResetPassword(ctx, chi.URLParam(r, "id"), req.NewPassword); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
