package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
)

// PurchaseOrderHandler órdenes de compra y su recepción.
type PurchaseOrderHandler struct {
	uc *inventory.ReceivingUseCase
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(uc *inventory.ReceivingUseCase) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreatePurchaseOrderRequest  true  "proveedor"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	order, err := h.uc.CreateOrder(c.UserContext(), in.Supplier, in.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

// GetByID godoc
// @Summary      Consultar orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	order, err := h.uc.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

// Receive godoc
// @Summary      Recibir orden de compra
// @Description  Aplica todas las líneas o ninguna. Si alguna línea es inválida responde 422 con
// @Description  el detalle por línea y la orden sigue pendiente.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "ID de la orden"
// @Param        body  body      dto.ReceiveOrderRequest  true  "líneas recibidas"
// @Success      200   {object}  dto.ReceiptResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]inventory.ReceiptLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.ReceiptLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	res, err := h.uc.Receive(c.UserContext(), inventory.ReceiptCommand{
		OrderID: c.Params("id"),
		Lines:   lines,
		UserID:  GetUserID(c),
		Note:    in.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReceiptResponse(res))
}
