package inventory

import (
	"context"
	"iter"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

const defaultLedgerPageSize = 500

// Ledger lectura del libro mayor de movimientos. La escritura solo ocurre desde el StockEngine.
type Ledger struct {
	movRepo  repository.InventoryMovementRepository
	pageSize int
}

// NewLedger construye el lector; pageSize <= 0 usa el valor por defecto.
func NewLedger(movRepo repository.InventoryMovementRepository, pageSize int) *Ledger {
	if pageSize <= 0 {
		pageSize = defaultLedgerPageSize
	}
	return &Ledger{movRepo: movRepo, pageSize: pageSize}
}

// HistoryFor secuencia perezosa del historial del artículo en orden cronológico.
// Cada recorrido vuelve a empezar desde el primer movimiento y pagina por (occurred_at, id).
func (l *Ledger) HistoryFor(ctx context.Context, itemID string) iter.Seq2[entity.InventoryMovement, error] {
	return historyFor(ctx, l.movRepo, itemID, l.pageSize)
}

// List devuelve hasta limit movimientos del artículo (los más antiguos primero).
func (l *Ledger) List(ctx context.Context, itemID string, limit int) ([]entity.InventoryMovement, error) {
	out := make([]entity.InventoryMovement, 0)
	for mov, err := range l.HistoryFor(ctx, itemID) {
		if err != nil {
			return nil, err
		}
		out = append(out, mov)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func historyFor(ctx context.Context, movRepo repository.InventoryMovementRepository, itemID string, pageSize int) iter.Seq2[entity.InventoryMovement, error] {
	return func(yield func(entity.InventoryMovement, error) bool) {
		var cursor *repository.MovementCursor
		for {
			page, err := movRepo.ListPage(ctx, itemID, cursor, pageSize)
			if err != nil {
				yield(entity.InventoryMovement{}, err)
				return
			}
			for _, mov := range page {
				if !yield(mov, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = &repository.MovementCursor{OccurredAt: last.OccurredAt, ID: last.ID}
		}
	}
}

// sumLedger Σ de cantidades con signo del historial completo del artículo.
func sumLedger(ctx context.Context, movRepo repository.InventoryMovementRepository, itemID string, pageSize int) (int64, int, error) {
	var (
		sum   int64
		count int
	)
	for mov, err := range historyFor(ctx, movRepo, itemID, pageSize) {
		if err != nil {
			return 0, 0, err
		}
		sum += mov.SignedQuantity()
		count++
	}
	return sum, count, nil
}
