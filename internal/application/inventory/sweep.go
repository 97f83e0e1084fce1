package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-medico/internal/domain/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

// StatusSweeper barrido periódico: aplica DeriveStatus a los artículos cuyo estado guardado
// quedó desactualizado (típicamente por caducidad). Solo escribe a través del StockEngine.
type StatusSweeper struct {
	engine   *StockEngine
	itemRepo repository.InventoryItemRepository
	pageSize int
	log      *logger.Logger
}

// NewStatusSweeper construye el barrido.
func NewStatusSweeper(engine *StockEngine, itemRepo repository.InventoryItemRepository, log *logger.Logger) *StatusSweeper {
	if log == nil {
		log = logger.Nop()
	}
	return &StatusSweeper{engine: engine, itemRepo: itemRepo, pageSize: 500, log: log.Component("status_sweep")}
}

// Sweep devuelve cuántos artículos cambiaron de estado.
func (s *StatusSweeper) Sweep(ctx context.Context) (int, error) {
	today := s.engine.now()
	updated := 0
	filter := repository.ItemFilter{Limit: s.pageSize}
	for {
		items, err := s.itemRepo.List(ctx, filter)
		if err != nil {
			return updated, err
		}
		for _, item := range items {
			// Filtro barato sobre la lectura sin bloqueo; RefreshStatus vuelve a decidir con la fila bloqueada
			if inventory.DeriveStatus(item.QuantityOnHand, item.ReorderThreshold, item.ExpiryDate, today) == item.Status {
				continue
			}
			changed, err := s.engine.RefreshStatus(ctx, item.ID)
			if err != nil {
				return updated, err
			}
			if changed {
				updated++
				s.log.Debug().Str("item_id", item.ID).Msg("estado recalculado")
			}
		}
		if len(items) < filter.Limit {
			break
		}
		filter.AfterID = items[len(items)-1].ID
	}
	s.log.Info().Int("updated", updated).Msg("barrido de estados completo")
	return updated, nil
}
