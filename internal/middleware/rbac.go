package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-integrity-api/internal/utils"
)

// RequireRole lets a request through only when JWTProtected attached an
// identity whose role is one of roles. Anonymous callers get a 401, callers
// with any other role a 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			allowed = append(allowed, role)
		}
	}

	return func(c *fiber.Ctx) error {
		switch role := UserRole(c); {
		case UserID(c) == "":
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		case !slices.Contains(allowed, role):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
