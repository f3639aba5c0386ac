package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/password"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

// ============================================================
// Política de senhas — /v1/settings/password-policy (admin)
// ============================================================

func getPolicyHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/password-policy")
		defer span.End()

		policy, err := admin.ActivePolicy(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, policy)
	}
}

func updatePolicyHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings/password-policy")
		defer span.End()

		var policy domain.PasswordPolicy
		if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		saved, err := admin.UpdatePolicy(ctx, policy)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, saved)
	}
}

// validatePasswordHandler checks a candidate password against the active
// policy and returns every violation plus the strength score. Nothing is
// persisted.
func validatePasswordHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/settings/password-policy/validate")
		defer span.End()

		var req struct {
			Password string `json:"password"`
			Name     string `json:"name,omitempty"`
			Email    string `json:"email,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		result := admin.ValidatePassword(ctx, req.Password, password.PersonalHints{
			Name:  req.Name,
			Email: req.Email,
		})
		writeJSON(w, http.StatusOK, result)
	}
}

// generatePasswordHandler produces a password satisfying the active policy.
func generatePasswordHandler(admin *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/settings/password-policy/generate")
		defer span.End()

		generated, err := admin.GeneratePassword(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"password": generated})
	}
}
