package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/utils"
)

// AuthMiddleware validates the JWT from the Authorization header or the
// token cookie and stores the caller's identity in the request context.
func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		tokenString = c.Cookies("token")
	}
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized - No token provided",
		})
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized - Invalid token",
		})
	}

	c.Locals("identity", claims.Identity)
	if claims.OrganizationID != nil {
		c.Locals("organizationID", *claims.OrganizationID)
	}

	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// GetIdentity gets the authenticated identity from context.
func GetIdentity(c *fiber.Ctx) string {
	identity, ok := c.Locals("identity").(string)
	if !ok {
		return ""
	}
	return identity
}

// GetOrganizationID gets the caller's organization, when the token carries
// one.
func GetOrganizationID(c *fiber.Ctx) *int64 {
	orgID, ok := c.Locals("organizationID").(int64)
	if !ok {
		return nil
	}
	return &orgID
}
