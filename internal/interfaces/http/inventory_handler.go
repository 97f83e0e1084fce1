package http

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/pkg/jwt"
)

// kindsByRole tipos de movimiento que puede registrar cada rol.
var kindsByRole = map[string][]entity.MovementKind{
	jwt.RoleAdmin: {
		entity.MovementInboundPurchase, entity.MovementOutboundDispense,
		entity.MovementOutboundAdjustment, entity.MovementOutboundSpoilage,
	},
	jwt.RoleBodeguero: {
		entity.MovementInboundPurchase, entity.MovementOutboundAdjustment, entity.MovementOutboundSpoilage,
	},
	jwt.RoleFarmaceutico: {entity.MovementOutboundDispense},
}

// InventoryHandler maneja las peticiones HTTP de movimientos, historial y reportes (protegido).
type InventoryHandler struct {
	engine        *inventory.StockEngine
	ledger        *inventory.Ledger
	catalog       *inventory.CatalogUseCase
	reconcile     *inventory.ReconcileUseCase
	stats         *inventory.StatsUseCase
	replenishment *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	engine *inventory.StockEngine,
	ledger *inventory.Ledger,
	catalog *inventory.CatalogUseCase,
	reconcile *inventory.ReconcileUseCase,
	stats *inventory.StatsUseCase,
	replenishment *inventory.ReplenishmentUseCase,
) *InventoryHandler {
	return &InventoryHandler{
		engine:        engine,
		ledger:        ledger,
		catalog:       catalog,
		reconcile:     reconcile,
		stats:         stats,
		replenishment: replenishment,
	}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Aplica una entrada o salida de forma atómica. Reintentar con el mismo Idempotency-Key
// @Description  devuelve el movimiento original sin aplicarlo dos veces.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                       false  "clave de idempotencia"
// @Param        body             body    dto.RegisterMovementRequest  true   "item_id, kind, quantity, referencia"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	kind := entity.MovementKind(in.Kind)
	if !slices.Contains(kindsByRole[GetRole(c)], kind) {
		if !kind.Valid() {
			return writeError(c, domain.ErrInvalidInput)
		}
		return writeError(c, domain.ErrForbidden)
	}

	key := strings.TrimSpace(c.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(in.IdempotencyKey)
	}
	refKind := entity.ReferenceKind(in.ReferenceKind)
	if refKind == "" {
		refKind = entity.ReferenceManual
	}

	mov, err := h.engine.ApplyMovement(c.UserContext(), inventory.MovementCommand{
		ItemID:         in.ItemID,
		Kind:           kind,
		Quantity:       in.Quantity,
		Reference:      entity.Reference{Kind: refKind, ID: in.ReferenceID},
		IdempotencyKey: key,
		Note:           in.Note,
		UserID:         userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// GetItem godoc
// @Summary      Consultar artículo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del artículo"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id} [get]
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toItemResponse(item))
}

// History godoc
// @Summary      Historial de movimientos de un artículo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del artículo"
// @Param        limit  query  int     false  "máximo de movimientos (por defecto 100, máximo 1000)"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.catalog.GetItem(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	movs, err := h.ledger.List(c.UserContext(), id, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for i := range movs {
		out = append(out, toMovementResponse(&movs[i]))
	}
	return c.JSON(dto.HistoryResponse{ItemID: id, Movements: out})
}

// Reconcile godoc
// @Summary      Conciliar saldo contra el libro mayor
// @Description  Diagnóstico de solo lectura: compara Σ(movimientos) con el saldo guardado.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del artículo"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.reconcile.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconciliationResponse{
		ItemID:          res.ItemID,
		OK:              res.OK,
		LedgerSum:       res.LedgerSum,
		CatalogQuantity: res.CatalogQuantity,
		Entries:         res.Entries,
	})
}

// Stats godoc
// @Summary      Estadísticas del inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        category         query  string  false  "filtrar por categoría"
// @Param        include_retired  query  bool    false  "incluir artículos retirados"
// @Success      200  {object}  dto.StatsResponse
// @Router       /api/inventory/stats [get]
func (h *InventoryHandler) Stats(c *fiber.Ctx) error {
	scope := inventory.StatsScope{
		Category:       c.Query("category"),
		IncludeRetired: c.QueryBool("include_retired", false),
	}
	st, err := h.stats.Stats(c.UserContext(), scope)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StatsResponse{
		Category:       scope.Category,
		TotalItems:     st.TotalItems,
		LowStockCount:  st.LowStockCount,
		ExpiredCount:   st.ExpiredCount,
		DepletedCount:  st.DepletedCount,
		TotalValuation: st.TotalValuation,
	})
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Artículos en low_stock o depleted con la cantidad sugerida de pedido, por mayor déficit.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        category  query  string  false  "filtrar por categoría"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.UserContext(), c.Query("category"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// GetReplenishmentPDF godoc
// @Summary      Lista de reposición en PDF
// @Description  Hoja de pedido imprimible con las mismas sugerencias de /replenishment-list.
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Param        category  query  string  false  "filtrar por categoría"
// @Success      200  {file}  binary
// @Router       /api/inventory/replenishment-list/pdf [get]
func (h *InventoryHandler) GetReplenishmentPDF(c *fiber.Ctx) error {
	doc, filename, err := h.replenishment.ReplenishmentPDF(c.UserContext(), c.Query("category"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(doc)
}
