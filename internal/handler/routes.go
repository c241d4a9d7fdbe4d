package handler

import (
	"go-inventory-ledger/internal/middleware"
	"go-inventory-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Auth         *AuthHandler
	Items        *ItemHandler
	Categories   *CategoryHandler
	Transactions *TransactionHandler
	Dashboard    *DashboardHandler
	Users        *UserHandler
}

// RegisterRoutes mounts the API. requireAuth guards every non-auth route.
func RegisterRoutes(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/validate-token", h.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)
	writers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admins := middleware.RequireRole(model.RoleAdmin)

	// Items (low-stock before :id so it is not parsed as an id)
	protected.Get("/items", h.Items.GetItems)
	protected.Get("/items/low-stock", h.Items.GetLowStock)
	protected.Get("/items/:id", h.Items.GetItem)
	protected.Post("/items", writers, h.Items.CreateItem)
	protected.Put("/items/:id", writers, h.Items.UpdateItem)
	protected.Patch("/items/:id/quantity", writers, h.Items.AdjustQuantity)
	protected.Delete("/items/:id", admins, h.Items.DeleteItem)

	// Categories
	protected.Get("/categories", h.Categories.GetCategories)
	protected.Get("/categories/:id", h.Categories.GetCategory)
	protected.Post("/categories", writers, h.Categories.CreateCategory)
	protected.Put("/categories/:id", writers, h.Categories.UpdateCategory)
	protected.Delete("/categories/:id", admins, h.Categories.DeleteCategory)

	// Ledger (read only; entries are written by PATCH /items/:id/quantity)
	protected.Get("/transactions", h.Transactions.GetTransactions)
	protected.Get("/transactions/item/:itemId", h.Transactions.GetItemTransactions)

	// Dashboard
	protected.Get("/dashboard/stats", h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", h.Dashboard.GetStockMovement)

	// Users (admin only)
	users := protected.Group("/users", admins)
	users.Get("", h.Users.GetUsers)
	users.Get("/:id", h.Users.GetUser)
	users.Post("", h.Users.CreateUser)
	users.Put("/:id", h.Users.UpdateUser)
	users.Delete("/:id", h.Users.DeleteUser)
}
