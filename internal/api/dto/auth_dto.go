package dto

import (
	"time"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// RegisterRequest payload for self-service registration.
type RegisterRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=64"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	FullName       string `json:"full_name" validate:"required"`
	Designation    string `json:"designation"`
	PhoneExtension string `json:"phone_extension"`
}

// LoginRequest payload for login; Login accepts username or email.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for credential rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse pairs a user with a fresh token.
type SessionResponse struct {
	User UserResponse `json:"user"`
	Auth AuthResponse `json:"auth"`
}

// NewSessionResponse builds a SessionResponse.
func NewSessionResponse(user *domain.User, token string, expiresAt time.Time) SessionResponse {
	return SessionResponse{
		User: NewUserResponse(user),
		Auth: AuthResponse{Token: token, ExpiresAt: expiresAt},
	}
}
