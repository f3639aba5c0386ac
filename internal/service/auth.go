package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// AuthService handles sign-in/sign-out against GoTrue and keeps the profile
// row in step with the auth identity. Tokens are minted by the backend and
// only validated here.
type AuthService struct {
	backend     port.AuthBackend
	profiles    port.ProfileStore
	users       *UserContext
	adminEmails []string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewAuthService creates the auth service. adminEmails is the allow-list
// that grants the admin role on first sign-in; no other path grants it
// implicitly.
func NewAuthService(backend port.AuthBackend, profiles port.ProfileStore, users *UserContext, adminEmails []string, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		backend:     backend,
		profiles:    profiles,
		users:       users,
		adminEmails: adminEmails,
		metrics:     metrics,
		logger:      logger,
	}
}

// SignIn exchanges credentials for a session and the user's profile.
// The profile row is created on first sign-in; accounts whose status is not
// ativo are rejected even with valid credentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	if email == "" || password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email e senha são obrigatórios"}
	}

	session, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			s.metrics.IncrLogin("invalid_credentials")
		} else {
			s.metrics.IncrLogin("error")
		}
		return nil, err
	}

	profile, err := s.ensureProfile(ctx, session)
	if err != nil {
		s.metrics.IncrLogin("error")
		return nil, err
	}

	if !profile.CanSignIn() {
		s.metrics.IncrLogin("blocked")
		s.logger.Warn("auth: sign-in blocked by status",
			zap.String("user_id", profile.ID),
			zap.String("status", string(profile.Status)),
		)
		return nil, &domain.ErrAccountBlocked{Status: profile.Status}
	}

	// Best effort; a failed timestamp write must not fail the sign-in.
	if err := s.profiles.TouchLastAccess(ctx, profile.ID); err != nil {
		s.logger.Warn("auth: last_access update failed", zap.String("user_id", profile.ID), zap.Error(err))
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("auth: sign-in", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
	return &domain.LoginResponse{Session: session, Profile: profile}, nil
}

// SignOut revokes the session server-side.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	return s.backend.SignOut(ctx, accessToken)
}

// Profile resolves the profile behind a validated session. Used by the
// session endpoint and by the request gate.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Profile")
	defer span.End()

	if s.users != nil {
		return s.users.Get(ctx, userID)
	}
	return s.profiles.GetProfile(ctx, userID)
}

// ensureProfile loads the profile by auth id, creating the row on first
// sign-in. The role comes from the allow-list; everyone else is a user.
func (s *AuthService) ensureProfile(ctx context.Context, session *domain.Session) (*domain.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, session.UserID)
	if err == nil {
		return profile, nil
	}
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		return nil, err
	}

	created, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		ID:     session.UserID,
		Email:  session.Email,
		Role:   s.roleFor(session.Email),
		Status: domain.StatusAtivo,
	})
	if err != nil {
		return nil, err
	}
	if s.users != nil {
		s.users.Add(created)
	}

	s.logger.Info("auth: profile created on first sign-in",
		zap.String("user_id", created.ID),
		zap.String("role", string(created.Role)),
	)
	return created, nil
}

func (s *AuthService) roleFor(email string) domain.Role {
	for _, admin := range s.adminEmails {
		if strings.EqualFold(admin, email) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
