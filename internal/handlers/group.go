package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/chat"
	"teamline/server/internal/middleware"
)

// GroupHandler serves group lifecycle, membership, and group messaging
// endpoints.
type GroupHandler struct {
	svc *chat.GroupService
}

func NewGroupHandler(svc *chat.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required"`
	Members []string `json:"members"`
}

// Create creates a group owned by the authenticated caller.
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	group, err := h.svc.Create(c.Context(), chat.CreateGroupInput{
		Name:           req.Name,
		CreatedBy:      middleware.GetIdentity(c),
		Members:        req.Members,
		OrganizationID: middleware.GetOrganizationID(c),
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    group,
	})
}

// Get returns a group with its member list.
func (h *GroupHandler) Get(c *fiber.Ctx) error {
	group, err := h.svc.Get(c.Context(), c.Params("groupId"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    group,
	})
}

// List returns every group the caller belongs to.
func (h *GroupHandler) List(c *fiber.Ctx) error {
	groups, err := h.svc.GroupsOf(c.Context(), middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    groups,
	})
}

// ListOf returns every group a given member belongs to.
func (h *GroupHandler) ListOf(c *fiber.Ctx) error {
	groups, err := h.svc.GroupsOf(c.Context(), c.Params("memberId"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    groups,
	})
}

// Leave removes the authenticated caller from a group.
func (h *GroupHandler) Leave(c *fiber.Ctx) error {
	err := h.svc.RemoveMember(c.Context(), c.Params("groupId"), middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Left the group",
	})
}

// Delete tears a group down with its messages and memberships.
func (h *GroupHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("groupId"), middleware.GetIdentity(c)); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Group deleted",
	})
}

// Members lists member identifiers of a group.
func (h *GroupHandler) Members(c *fiber.Ctx) error {
	members, err := h.svc.Members(c.Context(), c.Params("groupId"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    members,
	})
}

type AddMemberRequest struct {
	MemberID string `json:"memberId" validate:"required"`
}

// AddMember adds a member to a group.
func (h *GroupHandler) AddMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	err := h.svc.AddMember(c.Context(), c.Params("groupId"), req.MemberID, middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Member added",
	})
}

// RemoveMember takes a member out of a group. Removing an absent member
// still succeeds.
func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	err := h.svc.RemoveMember(c.Context(), c.Params("groupId"), c.Params("memberId"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Member removed",
	})
}

type SendGroupRequest struct {
	GroupID     string             `json:"groupId"`
	Content     string             `json:"content"`
	MessageType string             `json:"messageType"`
	Attachment  *AttachmentRequest `json:"attachment"`
}

// Send posts a message to a group. A request without a group id is
// accepted and dropped, so half-configured clients get a 2xx instead of a
// retry loop.
func (h *GroupHandler) Send(c *fiber.Ctx) error {
	var req SendGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.svc.Send(c.Context(), chat.SendGroupInput{
		GroupID:        req.GroupID,
		SenderID:       middleware.GetIdentity(c),
		Content:        req.Content,
		MessageType:    chat.ParseMessageType(req.MessageType),
		Attachment:     req.Attachment.toModel(),
		OrganizationID: middleware.GetOrganizationID(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	if msg == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success": true,
			"message": "Message dropped, no group id",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// History returns a group's messages. With an organizationId query the
// result is scoped to that tenant.
func (h *GroupHandler) History(c *fiber.Ctx) error {
	var orgID *int64
	if raw := c.Query("organizationId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "Invalid organizationId")
		}
		orgID = &parsed
	}

	msgs, err := h.svc.History(c.Context(), c.Params("groupId"), orgID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msgs,
	})
}

// DeleteMessage soft-deletes one of the caller's own group messages.
func (h *GroupHandler) DeleteMessage(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid message id")
	}

	msg, err := h.svc.DeleteMessage(c.Context(), id, middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// RedactMessage deletes a group message for everyone, replacing its
// content with a placeholder.
func (h *GroupHandler) RedactMessage(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid message id")
	}

	msg, err := h.svc.RedactMessage(c.Context(), id, middleware.GetIdentity(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}
