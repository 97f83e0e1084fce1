package inventory

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

// ReconciliationResult comparación entre Σ(libro mayor) y el saldo materializado.
type ReconciliationResult struct {
	ItemID          string
	OK              bool
	LedgerSum       int64
	CatalogQuantity int64
	Entries         int
}

// ReconcileUseCase diagnóstico de consistencia. Nunca corrige: ante una diferencia
// registra la alarma y devuelve OK=false. No se usa en la ruta de escritura.
type ReconcileUseCase struct {
	txRunner TxRunner
	itemRepo repository.InventoryItemRepository
	limiter  *rate.Limiter
	pageSize int
	log      *logger.Logger
}

// NewReconcileUseCase construye el caso de uso. perSecond limita cuántos artículos
// por segundo recorre ReconcileAll (<= 0 sin límite).
func NewReconcileUseCase(txRunner TxRunner, itemRepo repository.InventoryItemRepository, perSecond float64, log *logger.Logger) *ReconcileUseCase {
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &ReconcileUseCase{
		txRunner: txRunner,
		itemRepo: itemRepo,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: defaultLedgerPageSize,
		log:      log.Component("reconcile"),
	}
}

// Reconcile recorre el historial completo del artículo en una transacción de solo lectura:
// saldo y suma salen de la misma instantánea y los movimientos del artículo siguen sin esperar.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, itemID string) (*ReconciliationResult, error) {
	var result *ReconciliationResult
	err := uc.txRunner.RunSnapshot(ctx, func(
		ctx context.Context,
		movRepo repository.InventoryMovementRepository,
		itemRepo repository.InventoryItemRepository,
		_ repository.PurchaseOrderRepository,
	) error {
		item, err := itemRepo.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		sum, entries, err := sumLedger(ctx, movRepo, itemID, uc.pageSize)
		if err != nil {
			return err
		}
		result = &ReconciliationResult{
			ItemID:          itemID,
			OK:              sum == item.QuantityOnHand,
			LedgerSum:       sum,
			CatalogQuantity: item.QuantityOnHand,
			Entries:         entries,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.OK {
		uc.log.Error().
			Str("item_id", itemID).
			Int64("ledger_sum", result.LedgerSum).
			Int64("catalog_quantity", result.CatalogQuantity).
			Int("entries", result.Entries).
			Msg("ALERTA: saldo del catálogo no coincide con el libro mayor")
	}
	return result, nil
}

// ReconcileAll concilia todo el catálogo (incluye retirados) y devuelve solo las diferencias.
// Respeta el límite de velocidad para no competir con la operación normal.
func (uc *ReconcileUseCase) ReconcileAll(ctx context.Context) ([]ReconciliationResult, error) {
	mismatches := make([]ReconciliationResult, 0)
	checked := 0
	filter := repository.ItemFilter{IncludeRetired: true, Limit: uc.pageSize}
	for {
		items, err := uc.itemRepo.List(ctx, filter)
		if err != nil {
			return mismatches, err
		}
		for _, item := range items {
			if err := uc.limiter.Wait(ctx); err != nil {
				return mismatches, err
			}
			res, err := uc.Reconcile(ctx, item.ID)
			if err != nil {
				return mismatches, err
			}
			checked++
			if !res.OK {
				mismatches = append(mismatches, *res)
			}
		}
		if len(items) < filter.Limit {
			break
		}
		filter.AfterID = items[len(items)-1].ID
	}
	uc.log.Info().Int("checked", checked).Int("mismatches", len(mismatches)).Msg("conciliación completa")
	return mismatches, nil
}
