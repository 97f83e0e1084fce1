package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine        *inventory.StockEngine
	Ledger        *inventory.Ledger
	Catalog       *inventory.CatalogUseCase
	Reconcile     *inventory.ReconcileUseCase
	Stats         *inventory.StatsUseCase
	Replenishment *inventory.ReplenishmentUseCase
	Receiving     *inventory.ReceivingUseCase
	JWTSecret     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleFarmaceutico)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	adminOnly := RequireRole(jwt.RoleAdmin)

	inv := api.Group("/inventory")
	invHandler := NewInventoryHandler(deps.Engine, deps.Ledger, deps.Catalog, deps.Reconcile, deps.Stats, deps.Replenishment)
	// El rol puede registrar solo ciertos tipos de movimiento; lo decide el handler
	inv.Post("/movements", anyRole, invHandler.RegisterMovement)
	inv.Get("/items/:id", anyRole, invHandler.GetItem)
	inv.Get("/items/:id/history", anyRole, invHandler.History)
	inv.Get("/items/:id/reconcile", adminOnly, invHandler.Reconcile)
	inv.Get("/stats", anyRole, invHandler.Stats)
	inv.Get("/replenishment-list", warehouse, invHandler.GetReplenishmentList)
	inv.Get("/replenishment-list/pdf", warehouse, invHandler.GetReplenishmentPDF)

	catalogHandler := NewCatalogHandler(deps.Catalog)
	inv.Post("/items", adminOnly, catalogHandler.Create)
	inv.Patch("/items/:id", adminOnly, catalogHandler.Update)
	inv.Delete("/items/:id", adminOnly, catalogHandler.Retire)

	orders := api.Group("/purchase-orders", warehouse)
	orderHandler := NewPurchaseOrderHandler(deps.Receiving)
	orders.Post("/", orderHandler.Create)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Post("/:id/receive", orderHandler.Receive)
}
