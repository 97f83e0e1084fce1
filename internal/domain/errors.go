package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrConflict             = errors.New("conflicto con el estado actual")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInvalidQuantity      = errors.New("cantidad inválida: debe ser un entero positivo")
	ErrItemNotFound         = errors.New("artículo no encontrado o retirado")
	ErrStorageUnavailable   = errors.New("almacenamiento no disponible")
	ErrIdempotencyMismatch  = errors.New("la clave de idempotencia ya se usó con otro movimiento")
	ErrOrderAlreadyReceived = errors.New("la orden de compra ya fue recibida")
)

// InsufficientStockError rechazo de negocio de una salida que dejaría el stock en negativo.
// Lleva la cantidad disponible y la solicitada para que el llamador ofrezca una cantidad menor.
type InsufficientStockError struct {
	ItemID    string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", e.ItemID, e.Available, e.Requested)
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Shortfall devuelve cuántas unidades faltan para cubrir la solicitud.
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// IsBusinessError indica si el error es de validación o de negocio (nunca se reintenta).
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrIdempotencyMismatch) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOrderAlreadyReceived)
}
