package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/password"
	"github.com/easyscalepro/easyscale-api/internal/port"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService covers the privileged operations: user provisioning,
// password resets and the password policy. It is the only caller of the
// service-role GoTrue endpoints.
type AdminService struct {
	backend     port.AuthBackend
	profiles    port.ProfileStore
	policies    port.PolicyStore
	users       *UserContext
	adminEmails []string
	logger      *zap.Logger
}

// NewAdminService creates the admin service.
func NewAdminService(backend port.AuthBackend, profiles port.ProfileStore, policies port.PolicyStore, users *UserContext, adminEmails []string, logger *zap.Logger) *AdminService {
	return &AdminService{
		backend:     backend,
		profiles:    profiles,
		policies:    policies,
		users:       users,
		adminEmails: adminEmails,
		logger:      logger,
	}
}

// CreateUser provisions an auth identity plus its profile row. The password
// is validated against the active policy before anything is created, so a
// rejected password leaves no orphan identity behind.
func (s *AdminService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.CreateUserResponse, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.CreateUser")
	defer span.End()

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email inválido"}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "Senha é obrigatória"}
	}

	policy := s.policyOrDefault(ctx)
	result := password.Validate(req.Password, policy, password.PersonalHints{Name: req.Name, Email: email})
	if !result.Valid {
		return nil, &domain.ErrPasswordPolicy{Violations: result.Errors}
	}

	// Refuse early when a profile already holds this email. The backend
	// enforces uniqueness as well, so a failed lookup only skips this exit.
	if existing, err := s.profiles.GetProfileByEmail(ctx, email); err == nil && existing != nil {
		return nil, &domain.ErrConflict{Message: "Já existe um usuário com este email"}
	}

	userID, err := s.backend.AdminCreateUser(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		ID:      userID,
		Email:   email,
		Name:    req.Name,
		Company: req.Company,
		Phone:   req.Phone,
		Role:    s.roleFor(email),
		Status:  domain.StatusAtivo,
	})
	if err != nil {
		// The identity exists without a profile row; surface the failure,
		// the row is created on the user's first sign-in.
		s.logger.Error("admin: profile creation failed after user creation",
			zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if s.users != nil {
		s.users.Add(profile)
	}

	s.recordPasswordHash(ctx, userID, req.Password)

	s.logger.Info("admin: user created",
		zap.String("user_id", userID),
		zap.String("role", string(profile.Role)),
	)
	return &domain.CreateUserResponse{Success: true, UserID: userID, Email: email}, nil
}

// ResetPassword sets a new password for the user, enforcing the policy and
// the password history: the new password may not match any of the last
// HistoryCount passwords.
func (s *AdminService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	ctx, span := adminTracer.Start(ctx, "AdminService.ResetPassword")
	defer span.End()

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	policy := s.policyOrDefault(ctx)
	result := password.Validate(newPassword, policy, password.PersonalHints{Name: profile.Name, Email: profile.Email})
	if !result.Valid {
		return &domain.ErrPasswordPolicy{Violations: result.Errors}
	}

	if policy.HistoryCount > 0 {
		history, err := s.policies.ListPasswordHistory(ctx, userID, policy.HistoryCount)
		if err != nil {
			return err
		}
		for _, entry := range history {
			if bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(newPassword)) == nil {
				return &domain.ErrPasswordPolicy{Violations: []string{
					fmt.Sprintf("A senha não pode repetir as últimas %d senhas utilizadas", policy.HistoryCount),
				}}
			}
		}
	}

	if err := s.backend.AdminSetPassword(ctx, userID, newPassword); err != nil {
		return err
	}
	s.recordPasswordHash(ctx, userID, newPassword)

	s.logger.Info("admin: password reset", zap.String("user_id", userID))
	return nil
}

// ActivePolicy returns the configured policy, or the built-in default when
// none was ever saved.
func (s *AdminService) ActivePolicy(ctx context.Context) (domain.PasswordPolicy, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ActivePolicy")
	defer span.End()

	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return password.DefaultPolicy(), nil
		}
		return domain.PasswordPolicy{}, err
	}
	return *policy, nil
}

// UpdatePolicy saves the policy as the single active row.
func (s *AdminService) UpdatePolicy(ctx context.Context, policy domain.PasswordPolicy) (domain.PasswordPolicy, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.UpdatePolicy")
	defer span.End()

	if policy.MinLength < 1 {
		return domain.PasswordPolicy{}, &domain.ErrValidation{Field: "min_length", Message: "Tamanho mínimo deve ser pelo menos 1"}
	}
	if policy.MaxLength > 0 && policy.MaxLength < policy.MinLength {
		return domain.PasswordPolicy{}, &domain.ErrValidation{Field: "max_length", Message: "Tamanho máximo não pode ser menor que o mínimo"}
	}
	if policy.RequireSpecialChars && policy.AllowedSpecialChars == "" {
		policy.AllowedSpecialChars = password.DefaultSpecialChars
	}

	saved, err := s.policies.UpsertPolicy(ctx, &policy)
	if err != nil {
		return domain.PasswordPolicy{}, err
	}

	s.logger.Info("admin: password policy updated", zap.Int("min_length", saved.MinLength))
	return *saved, nil
}

// ValidatePassword checks a candidate password against the active policy.
// Pure check, nothing is persisted.
func (s *AdminService) ValidatePassword(ctx context.Context, candidate string, hints password.PersonalHints) password.Result {
	ctx, span := adminTracer.Start(ctx, "AdminService.ValidatePassword")
	defer span.End()

	return password.Validate(candidate, s.policyOrDefault(ctx), hints)
}

// GeneratePassword produces a password that satisfies the active policy.
func (s *AdminService) GeneratePassword(ctx context.Context) (string, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.GeneratePassword")
	defer span.End()

	return password.Generate(s.policyOrDefault(ctx))
}

func (s *AdminService) policyOrDefault(ctx context.Context) domain.PasswordPolicy {
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			s.logger.Warn("admin: policy fetch failed, using default", zap.Error(err))
		}
		return password.DefaultPolicy()
	}
	return *policy
}

// recordPasswordHash appends a bcrypt hash to the user's history. Best
// effort; history gaps weaken reuse detection but must not fail the flow.
func (s *AdminService) recordPasswordHash(ctx context.Context, userID, plaintext string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Warn("admin: password hash failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.policies.AppendPasswordHistory(ctx, userID, string(hash)); err != nil {
		s.logger.Warn("admin: password history append failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AdminService) roleFor(email string) domain.Role {
	for _, admin := range s.adminEmails {
		if strings.EqualFold(admin, email) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
