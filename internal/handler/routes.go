package handler

import (
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Routes groups the handlers mounted under /api/v1.
type Routes struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Ledger    *LedgerHandler
	Dashboard *DashboardHandler
	Users     *UserHandler
}

// Register mounts the API. requireAuth guards every route except login.
func (r Routes) Register(app *fiber.App, requireAuth fiber.Handler) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", r.Auth.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)
	admin := middleware.RequireRole(model.RoleAdmin)

	protected.Get("/auth/me", r.Auth.Me)

	// Dashboard
	protected.Get("/chart/daily-net", r.Dashboard.GetDailyNet)
	protected.Get("/chart/stock-snapshot", r.Dashboard.GetStockSnapshot)

	// Products
	protected.Get("/products", r.Inventory.GetProducts)
	protected.Get("/products/dropdown", r.Inventory.GetProductOptions)
	protected.Get("/products/:id", r.Inventory.GetProduct)
	protected.Post("/products", r.Inventory.CreateProduct)
	protected.Put("/products/:id", r.Inventory.UpdateProduct)
	protected.Put("/products/:id/stock", admin, r.Ledger.AdjustStock)
	protected.Delete("/products/:id", admin, r.Inventory.DeleteProduct)

	// Transactions
	protected.Get("/transactions", r.Inventory.GetTransactions)
	protected.Get("/transactions/:id", r.Inventory.GetTransaction)
	protected.Post("/transactions", r.Ledger.CreateTransaction)
	protected.Put("/transactions/:id", admin, r.Ledger.UpdateTransaction)
	protected.Delete("/transactions/:id", admin, r.Ledger.DeleteTransaction)

	protected.Get("/ledger/reconcile", admin, r.Ledger.Reconcile)

	// User management
	users := protected.Group("/users", admin)
	users.Get("/", r.Users.GetUsers)
	users.Get("/:id", r.Users.GetUser)
	users.Post("/", r.Users.CreateUser)
	users.Put("/:id", r.Users.UpdateUser)
	users.Delete("/:id", r.Users.DeleteUser)
}
