package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/requisition-service/internal/api/dto"
	"github.com/spec-kit/requisition-service/internal/service"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// ReplacementHandler exposes the unauthenticated confirmation endpoints.
// The token itself is the credential; there is no session to check.
type ReplacementHandler struct {
	replacements *service.ReplacementService
}

// NewReplacementHandler constructs handler.
func NewReplacementHandler(replacements *service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{replacements: replacements}
}

// Show handles GET /api/leave/confirm/:token.
func (h *ReplacementHandler) Show(c *fiber.Ctx) error {
	pending, err := h.replacements.Fetch(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	req := pending.Requisition
	return c.JSON(fiber.Map{"data": dto.PendingConfirmationResponse{
		Token:       pending.Token,
		Requisition: dto.NewRequisitionResponse(&req),
	}})
}

// Resolve handles POST /api/leave/confirm/:token.
func (h *ReplacementHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ReplacementDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	updated, err := h.replacements.Resolve(c.UserContext(), c.Params("token"), *req.Confirmed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequisitionResponse(updated)})
}
