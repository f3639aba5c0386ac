package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/authz"
	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	profileKey contextKey = "profile"
)

// AuthMiddleware validates Supabase-issued bearer tokens (HS256, GoTrue JWT
// secret) and runs the authorization gate before the handler. Tokens are
// never minted here, only checked.
type AuthMiddleware struct {
	jwtSecret []byte
	auth      *service.AuthService
	logger    *zap.Logger
}

// NewAuthMiddleware creates the middleware.
func NewAuthMiddleware(jwtSecret string, auth *service.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: []byte(jwtSecret), auth: auth, logger: logger}
}

// RequireSession admits any authenticated session and injects it, plus the
// profile, into the request context.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return m.require("", next)
}

// RequireAdmin admits only profiles with the admin role and status ativo.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(domain.RoleAdmin, next)
}

func (m *AuthMiddleware) require(role domain.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessionFromRequest(r)
		if err != nil {
			m.logger.Warn("auth: rejected token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			handleServiceError(w, err, m.logger)
			return
		}

		// The profile may legitimately not exist yet (identity created but
		// never signed in). The gate treats that as forbidden for role-gated
		// routes and allows plain authenticated ones.
		profile, err := m.auth.Profile(r.Context(), session.UserID)
		if err != nil {
			var notFound *domain.ErrNotFound
			if !errors.As(err, &notFound) {
				handleServiceError(w, err, m.logger)
				return
			}
			profile = nil
		}

		switch authz.Decide(session, profile, role) {
		case authz.RedirectLogin:
			writeError(w, http.StatusUnauthorized, "Sessão inválida. Faça login novamente")
			return
		case authz.RedirectForbidden:
			m.logger.Warn("auth: gate denied",
				zap.String("path", r.URL.Path),
				zap.String("user_id", session.UserID),
				zap.String("required_role", string(role)),
			)
			handleServiceError(w, &domain.ErrForbidden{Action: r.Method + " " + r.URL.Path}, m.logger)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		if profile != nil {
			ctx = context.WithValue(ctx, profileKey, profile)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromRequest extracts and validates the bearer token.
func (m *AuthMiddleware) sessionFromRequest(r *http.Request) (*domain.Session, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token de autenticação não fornecido"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, &domain.ErrUnauthorized{Message: "Formato de token inválido"}
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrSessionExpired{}
		}
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	email, _ := claims["email"].(string)

	return &domain.Session{
		AccessToken: parts[1],
		UserID:      sub,
		Email:       email,
	}, nil
}

// SessionFromContext returns the validated session injected by the middleware.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

// ProfileFromContext returns the profile injected by the middleware, which
// may be nil on plain authenticated routes.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(profileKey).(*domain.Profile)
	return p
}
