package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"teamline/server/internal/handlers"
	"teamline/server/internal/middleware"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Direct    *handlers.DirectHandler
	Group     *handlers.GroupHandler
	WebSocket *handlers.WebSocketHandler

	// DevAuth enables the local token-minting endpoint. Off in production.
	DevAuth bool
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h Handlers) {
	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", handlers.Health)

	if h.DevAuth {
		api.Post("/auth/token", handlers.IssueToken)
	}

	// Direct message routes (protected)
	messages := api.Group("/messages", middleware.AuthMiddleware)
	messages.Post("/direct", h.Direct.Send)
	messages.Get("/direct/:peer", h.Direct.History)
	messages.Delete("/direct/:id", h.Direct.Delete)
	messages.Post("/group", h.Group.Send)
	messages.Delete("/group/:id", h.Group.DeleteMessage)
	messages.Delete("/group/:id/everyone", h.Group.RedactMessage)

	// Group routes (protected)
	groups := api.Group("/groups", middleware.AuthMiddleware)
	groups.Post("/", h.Group.Create)
	groups.Get("/", h.Group.List)
	groups.Get("/user/:memberId", h.Group.ListOf)
	groups.Get("/:groupId", h.Group.Get)
	groups.Post("/:groupId/leave", h.Group.Leave)
	groups.Delete("/:groupId", h.Group.Delete)
	groups.Get("/:groupId/members", h.Group.Members)
	groups.Post("/:groupId/members", h.Group.AddMember)
	groups.Delete("/:groupId/members/:memberId", h.Group.RemoveMember)
	groups.Get("/:groupId/messages", h.Group.History)

	// WebSocket route (protected)
	api.Get("/ws", middleware.AuthMiddleware, h.WebSocket.Upgrade, websocket.New(h.WebSocket.Serve))

	// WebSocket stats (protected, for debugging)
	api.Get("/ws/stats", middleware.AuthMiddleware, h.WebSocket.Stats)
}
