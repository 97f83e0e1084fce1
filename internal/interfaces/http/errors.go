package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain"
)

// classifyError código HTTP, código de negocio y mensaje para un error de la capa de aplicación.
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser un entero positivo"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION", "datos inválidos"
	case errors.Is(err, domain.ErrItemNotFound):
		return fiber.StatusNotFound, "ITEM_NOT_FOUND", "artículo no encontrado o retirado"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		return fiber.StatusConflict, "IDEMPOTENCY_MISMATCH", "la clave de idempotencia ya se usó con otro movimiento"
	case errors.Is(err, domain.ErrOrderAlreadyReceived):
		return fiber.StatusConflict, "ALREADY_RECEIVED", "la orden de compra ya fue recibida"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE", "recurso duplicado"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT", "conflicto de concurrencia, reintente"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "almacenamiento no disponible, reintente más tarde"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "TIMEOUT", "tiempo agotado: reintente con la misma clave de idempotencia"
	default:
		return fiber.StatusInternalServerError, "INTERNAL", "error interno"
	}
}

// writeError responde el error con dto.ErrorResponse. Stock insuficiente incluye disponible,
// solicitado y faltante; una recepción abortada lista las líneas que fallaron.
func writeError(c *fiber.Ctx, err error) error {
	var receipt *inventory.ReceiptError
	if errors.As(err, &receipt) {
		failed := make([]dto.ReceiptLineFailure, 0, len(receipt.Failed))
		for _, f := range receipt.Failed {
			_, code, msg := classifyError(f.Err)
			failed = append(failed, dto.ReceiptLineFailure{
				Line:     f.Line,
				ItemID:   f.ItemID,
				Quantity: f.Quantity,
				Code:     code,
				Message:  msg,
			})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:    "RECEIPT_REJECTED",
			Message: "recepción abortada: no se aplicó ninguna línea",
			Details: failed,
		})
	}

	status, code, msg := classifyError(err)
	resp := dto.ErrorResponse{Code: code, Message: msg}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		resp.Details = dto.InsufficientStockDetails{
			ItemID:    insufficient.ItemID,
			Available: insufficient.Available,
			Requested: insufficient.Requested,
			Shortfall: insufficient.Shortfall(),
		}
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
