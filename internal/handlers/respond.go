// Package handlers exposes the HTTP surface. Handlers parse and validate
// requests, call the chat services, and translate the service error
// taxonomy onto statuses. They hold no business rules.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/chat"
)

func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, chat.ErrValidation):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, chat.ErrForbidden):
		status = fiber.StatusForbidden
		message = "You are not allowed to do that"
	case errors.Is(err, chat.ErrNotMember):
		status = fiber.StatusForbidden
		message = "Not a member of this group"
	case errors.Is(err, chat.ErrNotFound):
		status = fiber.StatusNotFound
		message = "Not found"
	case errors.Is(err, chat.ErrAlreadyMember):
		status = fiber.StatusConflict
		message = "Already a member"
	case errors.Is(err, chat.ErrPartialDeletion):
		message = "Deletion incomplete, retry to resume"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
