package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/requisition-service/internal/api/dto"
	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/export"
	"github.com/spec-kit/requisition-service/internal/service"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// RequisitionsHandler exposes the requisition lifecycle endpoints.
type RequisitionsHandler struct {
	requisitions *service.RequisitionService
}

// NewRequisitionsHandler constructs handler.
func NewRequisitionsHandler(requisitions *service.RequisitionService) *RequisitionsHandler {
	return &RequisitionsHandler{requisitions: requisitions}
}

// Create handles POST /api/requisitions.
func (h *RequisitionsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.RequisitionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}

	created, err := h.requisitions.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequisitionResponse(created)})
}

// List handles GET /api/requisitions?type=.
func (h *RequisitionsHandler) List(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var typeFilter *domain.RequisitionType
	if raw := c.Query("type"); raw != "" {
		t := domain.RequisitionType(raw)
		if !domain.ValidRequisitionType(t) {
			return apperrors.NewValidationError("invalid requisition type", nil)
		}
		typeFilter = &t
	}

	list, err := h.requisitions.List(c.UserContext(), actor, typeFilter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequisitionResponses(list)})
}

// Get handles GET /api/requisitions/:id.
func (h *RequisitionsHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	req, err := h.requisitions.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequisitionResponse(req)})
}

// Update handles PUT /api/requisitions/:id.
func (h *RequisitionsHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.RequisitionUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	updated, err := h.requisitions.Update(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequisitionResponse(updated)})
}

// Delete handles DELETE /api/requisitions/:id.
func (h *RequisitionsHandler) Delete(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	if err := h.requisitions.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "requisition deleted"}})
}

// Export handles GET /api/requisitions/:id/export.
func (h *RequisitionsHandler) Export(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	req, err := h.requisitions.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	payload, err := export.RequisitionCSV(req, time.Now())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(req)))
	return c.Send(payload)
}
