package middleware

import (
	"fmt"
	"strings"

	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth is middleware that validates JWT token and sets user info in context
func RequireAuth(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apierror.New(c, fiber.StatusUnauthorized, apierror.CodeUnauthorized, "Missing authorization token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apierror.New(c, fiber.StatusUnauthorized, apierror.CodeUnauthorized, "Invalid authorization format. Use: Bearer <token>")
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return apierror.New(c, fiber.StatusUnauthorized, apierror.CodeUnauthorized, "Invalid or expired token")
		}

		// Deleted users lose access before their token expires
		user, err := userRepo.FindByID(c.UserContext(), claims.UserID)
		if err != nil {
			return apierror.New(c, fiber.StatusUnauthorized, apierror.CodeUnauthorized, "User not found")
		}

		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.Name)
		c.Locals("user_role", string(user.Role))

		return c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the given roles.
func RequireRole(roles ...model.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		for _, r := range roles {
			if string(r) == role {
				return c.Next()
			}
		}
		return apierror.Write(c, fmt.Errorf("%w: requires role %s", model.ErrForbidden, joinRoles(roles)))
	}
}

func joinRoles(roles []model.UserRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
