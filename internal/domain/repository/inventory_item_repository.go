package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

// ItemFilter filtro de recorrido del catálogo (paginación por ID).
type ItemFilter struct {
	Category       string
	IncludeRetired bool
	AfterID        string
	Limit          int
}

// InventoryItemRepository puerto de persistencia del catálogo de artículos.
// Get y GetForUpdate devuelven (nil, nil) si el artículo no existe.
type InventoryItemRepository interface {
	Create(ctx context.Context, item *entity.InventoryItem) error
	Get(ctx context.Context, id string) (*entity.InventoryItem, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error)
	// UpdateStock escribe saldo y estado si la versión no cambió desde la lectura; si cambió, domain.ErrConflict.
	UpdateStock(ctx context.Context, id string, expectedVersion, quantity int64, status entity.ItemStatus) error
	UpdateStatus(ctx context.Context, id string, expectedVersion int64, status entity.ItemStatus) error
	// UpdateAttributes actualiza los campos del catálogo (nombre, categoría, umbral, caducidad, costo).
	UpdateAttributes(ctx context.Context, item *entity.InventoryItem) error
	Retire(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter ItemFilter) ([]*entity.InventoryItem, error)
}
