package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	ws "teamline/server/internal/websocket"
)

// WebSocketHandler owns the live connection endpoints.
type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// Upgrade gates the connection endpoint to actual upgrade requests.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error":   "WebSocket upgrade required",
	})
}

// Serve runs one connection. Blocks until the socket closes.
func (h *WebSocketHandler) Serve(c *websocket.Conn) {
	identity, _ := c.Locals("identity").(string)
	if identity == "" {
		c.Close()
		return
	}

	client := ws.NewClient(identity, c, h.hub, h.logger)
	h.hub.Register(context.Background(), client)

	go client.WritePump()
	client.ReadPump()
}

// Stats reports live connection counts.
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"connected":  h.hub.ConnectedCount(),
			"identities": h.hub.ConnectedIdentities(),
		},
	})
}
