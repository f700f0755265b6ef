package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/config"
	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/repository"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// AuthService coordinates registration, login and credential flows.
type AuthService struct {
	users      repository.UserRepository
	issued     repository.AuthTokenRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo      repository.UserRepository
	AuthTokenRepo repository.AuthTokenRepository
}

// RegisterInput describes a self-service registration payload.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	FullName       string
	Designation    string
	PhoneExtension string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		issued:     deps.AuthTokenRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new account. The very first account becomes the IT
// administrator; everyone after starts as an employee.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("username already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	role := domain.RoleEmployee
	if count == 0 {
		role = domain.RoleIT
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Username:       strings.TrimSpace(input.Username),
		Email:          strings.TrimSpace(input.Email),
		PasswordHash:   hash,
		Role:           role,
		FullName:       strings.TrimSpace(input.FullName),
		Designation:    input.Designation,
		PhoneExtension: input.PhoneExtension,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates by username or email.
func (s *AuthService) Login(ctx context.Context, login, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account is deactivated")
	}

	token, exp, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Logout invalidates the token record so the JWT dies with the session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.issued.Invalidate(ctx, token)
}

// ChangePassword rotates the credential after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, current, next string) error {
	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

func (s *AuthService) issueToken(ctx context.Context, userID string) (string, time.Time, error) {
	token, exp, err := s.tokenMgr.GenerateToken(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	record := &repository.AuthTokenRecord{
		UserID:    userID,
		Token:     token,
		ExpiresAt: exp,
	}
	if err := s.issued.Create(ctx, record); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}
