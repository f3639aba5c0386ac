package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

// policyErrorResponse carries the full violation list so the frontend can
// render the rules inline.
type policyErrorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var policyErr *domain.ErrPasswordPolicy
	var unauthorized *domain.ErrUnauthorized
	var sessionExpired *domain.ErrSessionExpired
	var forbidden *domain.ErrForbidden
	var accountBlocked *domain.ErrAccountBlocked
	var conflict *domain.ErrConflict
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &policyErr):
		logger.Debug("password policy violation", zap.Strings("violations", policyErr.Violations))
		writeJSON(w, http.StatusBadRequest, policyErrorResponse{
			Error:      err.Error(),
			Violations: policyErr.Violations,
		})
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &sessionExpired):
		logger.Warn("session expired")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("action", forbidden.Action))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &accountBlocked):
		logger.Warn("account blocked", zap.String("status", string(accountBlocked.Status)))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Serviço temporariamente indisponível")
	case errors.As(err, &external):
		logger.Error("backend failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Erro ao comunicar com o servidor")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
