package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain"
)

// CatalogHandler alta, edición y retiro de artículos (solo admin).
type CatalogHandler struct {
	uc *inventory.CatalogUseCase
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *inventory.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// Create godoc
// @Summary      Crear artículo
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateItemRequest  true  "datos del artículo (saldo inicial 0)"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/items [post]
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	expiry, err := dto.ParseDate(in.ExpiryDate)
	if err != nil {
		return writeError(c, domain.ErrInvalidInput)
	}
	item, err := h.uc.CreateItem(c.UserContext(), inventory.CreateItemInput{
		SKU:              in.SKU,
		Name:             in.Name,
		Category:         in.Category,
		ReorderThreshold: in.ReorderThreshold,
		UnitCost:         in.UnitCost,
		ExpiryDate:       expiry,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toItemResponse(item))
}

// Update godoc
// @Summary      Actualizar artículo
// @Description  Nunca modifica saldo ni estado directamente; el estado se recalcula.
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del artículo"
// @Param        body  body      dto.UpdateItemRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id} [patch]
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	expiry, err := dto.ParseDate(in.ExpiryDate)
	if err != nil {
		return writeError(c, domain.ErrInvalidInput)
	}
	item, err := h.uc.UpdateItem(c.UserContext(), c.Params("id"), inventory.UpdateItemInput{
		Name:             in.Name,
		Category:         in.Category,
		ReorderThreshold: in.ReorderThreshold,
		UnitCost:         in.UnitCost,
		ExpiryDate:       expiry,
		ClearExpiry:      in.ClearExpiry,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toItemResponse(item))
}

// Retire godoc
// @Summary      Retirar artículo
// @Tags         catalog
// @Security     Bearer
// @Param        id   path  string  true  "ID del artículo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id} [delete]
func (h *CatalogHandler) Retire(c *fiber.Ctx) error {
	if err := h.uc.RetireItem(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
