package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	dominv "github.com/jhoicas/Inventario-medico/internal/domain/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// CreateItemInput alta de un artículo. El saldo siempre arranca en 0.
type CreateItemInput struct {
	SKU              string
	Name             string
	Category         string
	ReorderThreshold int64
	UnitCost         decimal.Decimal
	ExpiryDate       *time.Time
}

// UpdateItemInput campos opcionales del catálogo; nil = sin cambio.
// ClearExpiry quita la fecha de caducidad.
type UpdateItemInput struct {
	Name             *string
	Category         *string
	ReorderThreshold *int64
	UnitCost         *decimal.Decimal
	ExpiryDate       *time.Time
	ClearExpiry      bool
}

// CatalogUseCase mantenimiento del catálogo. Nunca modifica saldo; el estado lo recalcula
// el StockEngine dentro de la misma transacción.
type CatalogUseCase struct {
	txRunner TxRunner
	itemRepo repository.InventoryItemRepository
	engine   *StockEngine
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(txRunner TxRunner, itemRepo repository.InventoryItemRepository, engine *StockEngine) *CatalogUseCase {
	return &CatalogUseCase{txRunner: txRunner, itemRepo: itemRepo, engine: engine}
}

// GetItem devuelve el artículo (también si está retirado) o ErrItemNotFound.
func (uc *CatalogUseCase) GetItem(ctx context.Context, id string) (*entity.InventoryItem, error) {
	item, err := uc.itemRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

// CreateItem da de alta el artículo con saldo 0 (estado depleted).
func (uc *CatalogUseCase) CreateItem(ctx context.Context, in CreateItemInput) (*entity.InventoryItem, error) {
	if strings.TrimSpace(in.Name) == "" || in.ReorderThreshold < 0 || in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	now := uc.engine.now()
	item := &entity.InventoryItem{
		ID:               uuid.New().String(),
		SKU:              strings.TrimSpace(in.SKU),
		Name:             strings.TrimSpace(in.Name),
		Category:         dominv.NormalizeCategory(in.Category),
		QuantityOnHand:   0,
		ReorderThreshold: in.ReorderThreshold,
		UnitCost:         in.UnitCost,
		ExpiryDate:       in.ExpiryDate,
		Status:           dominv.DeriveStatus(0, in.ReorderThreshold, in.ExpiryDate, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem aplica los cambios del catálogo y recalcula el estado en la misma transacción.
func (uc *CatalogUseCase) UpdateItem(ctx context.Context, id string, in UpdateItemInput) (*entity.InventoryItem, error) {
	if (in.ReorderThreshold != nil && *in.ReorderThreshold < 0) ||
		(in.UnitCost != nil && in.UnitCost.IsNegative()) ||
		(in.Name != nil && strings.TrimSpace(*in.Name) == "") {
		return nil, domain.ErrInvalidInput
	}
	err := uc.txRunner.Run(ctx, func(
		ctx context.Context,
		_ repository.InventoryMovementRepository,
		itemRepo repository.InventoryItemRepository,
		_ repository.PurchaseOrderRepository,
	) error {
		item, err := itemRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item == nil || item.IsRetired() {
			return domain.ErrItemNotFound
		}
		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
		}
		if in.Category != nil {
			item.Category = dominv.NormalizeCategory(*in.Category)
		}
		if in.ReorderThreshold != nil {
			item.ReorderThreshold = *in.ReorderThreshold
		}
		if in.UnitCost != nil {
			item.UnitCost = *in.UnitCost
		}
		if in.ClearExpiry {
			item.ExpiryDate = nil
		} else if in.ExpiryDate != nil {
			item.ExpiryDate = in.ExpiryDate
		}
		if err := itemRepo.UpdateAttributes(ctx, item); err != nil {
			return err
		}
		_, err = uc.engine.refreshInTx(ctx, itemRepo, id, uc.engine.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return uc.GetItem(ctx, id)
}

// RetireItem retiro lógico: el historial sigue referenciándolo y los movimientos nuevos se rechazan.
func (uc *CatalogUseCase) RetireItem(ctx context.Context, id string) error {
	item, err := uc.itemRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if item == nil || item.IsRetired() {
		return domain.ErrItemNotFound
	}
	return uc.itemRepo.Retire(ctx, id, uc.engine.now())
}
