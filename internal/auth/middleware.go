package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/repository"
	apperrors "github.com/spec-kit/requisition-service/pkg/errorutil"
)

const principalKey = "auth_principal"

// Principal is the session context for a request: the authenticated user
// plus the bearer token that carried them in. Role capability checks hang
// off the embedded user; there is no package-level session state.
type Principal struct {
	User  *domain.User
	Token string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	issued repository.AuthTokenRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, issued repository.AuthTokenRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, issued: issued}
}

// Handle enforces authentication for protected routes. The JWT must verify
// and its server-side record must still be valid; sign-out flips that
// record, so a stolen token dies with the session.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	tokenStr := parts[1]

	claims, err := m.tokens.ParseToken(tokenStr)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if _, err := m.issued.GetValid(c.Context(), tokenStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("token revoked or expired")
		}
		return apperrors.MapError(err)
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("account is deactivated")
	}

	c.Locals(principalKey, &Principal{User: user, Token: tokenStr})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// CurrentUser returns the authenticated user or an unauthenticated-access
// error; dependent operations refuse to run without one.
func CurrentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authenticated user required")
	}
	return principal.User, nil
}
