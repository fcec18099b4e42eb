package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/chat"
	"teamline/server/internal/middleware"
	"teamline/server/internal/models"
	"teamline/server/internal/utils"
)

// DirectHandler serves 1:1 messaging endpoints.
type DirectHandler struct {
	svc *chat.DirectService
}

func NewDirectHandler(svc *chat.DirectService) *DirectHandler {
	return &DirectHandler{svc: svc}
}

// SendDirectRequest is the send body. Attachment metadata comes from the
// blob store upload that preceded this call.
type SendDirectRequest struct {
	RecipientID string             `json:"recipientId" validate:"required"`
	Content     string             `json:"content"`
	Attachment  *AttachmentRequest `json:"attachment"`
}

type AttachmentRequest struct {
	URL         string `json:"url" validate:"required"`
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func (a *AttachmentRequest) toModel() *models.Attachment {
	if a == nil {
		return nil
	}
	return &models.Attachment{
		URL:         a.URL,
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
	}
}

// Send sends a direct message from the authenticated caller.
func (h *DirectHandler) Send(c *fiber.Ctx) error {
	var req SendDirectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, utils.ValidationMessage(err))
	}

	msg, err := h.svc.Send(c.Context(), chat.SendDirectInput{
		SenderID:    middleware.GetIdentity(c),
		RecipientID: req.RecipientID,
		Content:     req.Content,
		Attachment:  req.Attachment.toModel(),
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// History returns the caller's conversation with another user.
func (h *DirectHandler) History(c *fiber.Ctx) error {
	peer := c.Params("peer")

	msgs, err := h.svc.History(c.Context(), middleware.GetIdentity(c), peer)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msgs,
	})
}

// Delete soft-deletes one of the caller's own messages.
func (h *DirectHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid message id")
	}

	msg, err := h.svc.Delete(c.Context(), id, middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}
