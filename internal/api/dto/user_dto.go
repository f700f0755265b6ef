package dto

import (
	"time"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// UserCreateRequest payload for admin-created accounts.
type UserCreateRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=64"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	FullName       string `json:"full_name" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=employee manager it"`
	Designation    string `json:"designation"`
	PhoneExtension string `json:"phone_extension"`
}

// UserUpdateRequest payload for partial admin edits.
type UserUpdateRequest struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Role           *string `json:"role" validate:"omitempty,oneof=employee manager it"`
	Designation    *string `json:"designation"`
	PhoneExtension *string `json:"phone_extension"`
	IsActive       *bool   `json:"is_active"`
}

// ProfileUpdateRequest payload for self-service profile edits.
type ProfileUpdateRequest struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Designation    *string `json:"designation"`
	PhoneExtension *string `json:"phone_extension"`
}

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	FullName       string    `json:"full_name"`
	Designation    string    `json:"designation,omitempty"`
	PhoneExtension string    `json:"phone_extension,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Role:           string(user.Role),
		FullName:       user.FullName,
		Designation:    user.Designation,
		PhoneExtension: user.PhoneExtension,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
	}
}

// NewUserResponses maps a slice of domain users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
