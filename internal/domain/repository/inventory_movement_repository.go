package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

// MovementCursor posición para paginar el historial por (occurred_at, id).
type MovementCursor struct {
	OccurredAt time.Time
	ID         int64
}

// InventoryMovementRepository puerto del libro mayor de movimientos. Solo inserción:
// no existe operación de actualización ni de borrado.
type InventoryMovementRepository interface {
	// Append inserta el movimiento y devuelve su ID monotónico.
	Append(ctx context.Context, movement *entity.InventoryMovement) (int64, error)
	// GetByIdempotencyKey devuelve (nil, nil) si la clave no se ha usado.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.InventoryMovement, error)
	// ListPage devuelve hasta limit movimientos del artículo posteriores a after, en orden cronológico.
	ListPage(ctx context.Context, itemID string, after *MovementCursor, limit int) ([]entity.InventoryMovement, error)
}
