package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-pet-project/inventory/internal/transport/http/handler"
	"github.com/sakashimaa/go-pet-project/inventory/internal/transport/http/middleware"
)

type Handlers struct {
	Inventory *handler.InventoryHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("Inventory service is alive!")
	})

	items := app.Group("/items", middleware.NewAuthMiddleware(jwtSecret))
	items.Get("", h.Inventory.List)
	items.Post("", middleware.NewRequireRoleMiddleware(middleware.RoleAdmin), h.Inventory.Grant)
}
