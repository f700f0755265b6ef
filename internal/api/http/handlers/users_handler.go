package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/requisition-service/internal/api/dto"
	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/service"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// UsersHandler exposes account administration, search and profile endpoints.
type UsersHandler struct {
	users        *service.UserService
	replacements *service.ReplacementService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, replacements *service.ReplacementService) *UsersHandler {
	return &UsersHandler{users: users, replacements: replacements}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), service.UserCreateInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Role:           domain.Role(req.Role),
		Designation:    req.Designation,
		PhoneExtension: req.PhoneExtension,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	input := service.UserUpdateInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Designation:    req.Designation,
		PhoneExtension: req.PhoneExtension,
		IsActive:       req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "user deleted"}})
}

// Search handles GET /api/users/search?q=.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	users, err := h.users.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateMe handles PUT /api/users/me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	updated, err := h.users.UpdateProfile(c.UserContext(), user, service.ProfileUpdateInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Designation:    req.Designation,
		PhoneExtension: req.PhoneExtension,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}

// PendingReplacements handles GET /api/users/me/pending-replacement-requests.
func (h *UsersHandler) PendingReplacements(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	pending, err := h.replacements.ListPendingForUser(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPendingConfirmationResponses(pending)})
}
