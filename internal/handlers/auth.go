package handlers

import (
	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/utils"
)

// TokenRequest mints a development token. The route is registered only
// outside production; real deployments get tokens from the identity
// provider.
type TokenRequest struct {
	Identity       string `json:"identity" validate:"required,email"`
	OrganizationID *int64 `json:"organizationId"`
}

// IssueToken returns a signed token for the requested identity.
func IssueToken(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, utils.ValidationMessage(err))
	}

	token, err := utils.GenerateToken(req.Identity, req.OrganizationID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to issue token",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"token": token},
	})
}
