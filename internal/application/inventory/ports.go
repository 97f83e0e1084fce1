package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// TxFunc recibe repositorios atados a la transacción en curso.
type TxFunc func(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	itemRepo repository.InventoryItemRepository,
	orderRepo repository.PurchaseOrderRepository,
) error

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn TxFunc) error
	// RunSnapshot ejecuta fn en una transacción de solo lectura: todas las lecturas ven la misma
	// instantánea confirmada y no se bloquea ninguna fila. Las escrituras fallan.
	RunSnapshot(ctx context.Context, fn TxFunc) error
}
