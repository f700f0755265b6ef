package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

// RequireUserManagement gates the account-administration surface.
func RequireUserManagement() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !user.CanManageUsers() {
			return apperrors.NewForbidden("user management requires it role")
		}
		return c.Next()
	}
}
