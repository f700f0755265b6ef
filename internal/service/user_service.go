package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/repository"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// UserService covers account administration and profile edits. Handlers
// gate the administration surface to the it role before calling in.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// UserCreateInput describes an admin-created account.
type UserCreateInput struct {
	Username       string
	Email          string
	Password       string
	FullName       string
	Role           domain.Role
	Designation    string
	PhoneExtension string
}

// UserUpdateInput describes a partial admin update.
type UserUpdateInput struct {
	FullName       *string
	Email          *string
	Role           *domain.Role
	Designation    *string
	PhoneExtension *string
	IsActive       *bool
}

// ProfileUpdateInput describes a self-service profile edit.
type ProfileUpdateInput struct {
	FullName       *string
	Email          *string
	Designation    *string
	PhoneExtension *string
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Get fetches one account.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// Create provisions an account with an explicit role.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("invalid role", nil)
	}
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, apperrors.NewValidationError("username already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewValidationError("email already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:       strings.TrimSpace(input.Username),
		Email:          strings.TrimSpace(input.Email),
		PasswordHash:   hash,
		Role:           input.Role,
		FullName:       strings.TrimSpace(input.FullName),
		Designation:    input.Designation,
		PhoneExtension: input.PhoneExtension,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a partial admin edit.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *input.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Role != nil {
		if !domain.ValidRole(*input.Role) {
			return nil, apperrors.NewValidationError("invalid role", nil)
		}
		user.Role = *input.Role
	}
	if input.Designation != nil {
		user.Designation = *input.Designation
	}
	if input.PhoneExtension != nil {
		user.PhoneExtension = *input.PhoneExtension
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a self-service edit to the acting user.
func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, input ProfileUpdateInput) (*domain.User, error) {
	if input.Email != nil && *input.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *input.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Designation != nil {
		user.Designation = *input.Designation
	}
	if input.PhoneExtension != nil {
		user.PhoneExtension = *input.PhoneExtension
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	return nil
}

// Search finds active users by name or username. Queries shorter than two
// characters return an empty result rather than scanning everything.
func (s *UserService) Search(ctx context.Context, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []domain.User{}, nil
	}
	return s.users.Search(ctx, query, 10)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil && existing.ID != selfID {
		return apperrors.NewValidationError("email already exists", nil)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}
