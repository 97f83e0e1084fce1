package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	dominv "github.com/jhoicas/Inventario-medico/internal/domain/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// StatsScope alcance del reporte. Category vacía = todo el catálogo.
type StatsScope struct {
	Category       string
	IncludeRetired bool
}

// Stats conteos por estado y valuación total del inventario.
type Stats struct {
	TotalItems     int
	LowStockCount  int
	ExpiredCount   int
	DepletedCount  int
	TotalValuation decimal.Decimal
}

// StatsUseCase recorrido de solo lectura del catálogo; no tiene ruta de escritura.
type StatsUseCase struct {
	itemRepo repository.InventoryItemRepository
	pageSize int
}

// NewStatsUseCase construye el agregador.
func NewStatsUseCase(itemRepo repository.InventoryItemRepository) *StatsUseCase {
	return &StatsUseCase{itemRepo: itemRepo, pageSize: 500}
}

// Stats un catálogo vacío devuelve todo en cero, sin error.
func (uc *StatsUseCase) Stats(ctx context.Context, scope StatsScope) (*Stats, error) {
	out := &Stats{TotalValuation: decimal.Zero}
	filter := repository.ItemFilter{
		Category:       dominv.NormalizeCategory(scope.Category),
		IncludeRetired: scope.IncludeRetired,
		Limit:          uc.pageSize,
	}
	for {
		items, err := uc.itemRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out.TotalItems++
			switch item.Status {
			case entity.ItemStatusLowStock:
				out.LowStockCount++
			case entity.ItemStatusExpired:
				out.ExpiredCount++
			case entity.ItemStatusDepleted:
				out.DepletedCount++
			}
			out.TotalValuation = out.TotalValuation.Add(item.Valuation())
		}
		if len(items) < filter.Limit {
			return out, nil
		}
		filter.AfterID = items[len(items)-1].ID
	}
}
