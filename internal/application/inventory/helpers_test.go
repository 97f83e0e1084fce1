package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/memory"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	engine    *inventory.StockEngine
	catalog   *inventory.CatalogUseCase
	ledger    *inventory.Ledger
	reconcile *inventory.ReconcileUseCase
	receiving *inventory.ReceivingUseCase
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), now: fixedNow}
	f.engine = inventory.NewStockEngine(f.store, inventory.EngineConfig{
		MovementTimeout: 2 * time.Second,
		ConflictRetries: 3,
		StorageRetries:  4,
		RetryBaseDelay:  time.Millisecond,
	}, nil).WithClock(func() time.Time { return f.now })
	f.catalog = inventory.NewCatalogUseCase(f.store, f.store.Items(), f.engine)
	f.ledger = inventory.NewLedger(f.store.Movements(), 2)
	f.reconcile = inventory.NewReconcileUseCase(f.store, f.store.Items(), 0, nil)
	f.receiving = inventory.NewReceivingUseCase(f.store, f.store.Items(), f.engine, inventory.DefaultReceivingConfig(), nil)
	return f
}

// newItem da de alta un artículo y le carga stock inicial con una compra.
func (f *fixture) newItem(t *testing.T, sku string, threshold, qty int64) *entity.InventoryItem {
	t.Helper()
	ctx := context.Background()
	item, err := f.catalog.CreateItem(ctx, inventory.CreateItemInput{
		SKU:              sku,
		Name:             "Artículo " + sku,
		Category:         "Medicamentos",
		ReorderThreshold: threshold,
		UnitCost:         decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	if qty > 0 {
		f.apply(t, item.ID, entity.MovementInboundPurchase, qty, "")
	}
	return item
}

func (f *fixture) apply(t *testing.T, itemID string, kind entity.MovementKind, qty int64, key string) *entity.InventoryMovement {
	t.Helper()
	mov, err := f.engine.ApplyMovement(context.Background(), movement(itemID, kind, qty, key))
	require.NoError(t, err)
	return mov
}

func (f *fixture) item(t *testing.T, id string) *entity.InventoryItem {
	t.Helper()
	item, err := f.catalog.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item
}

func movement(itemID string, kind entity.MovementKind, qty int64, key string) inventory.MovementCommand {
	return inventory.MovementCommand{
		ItemID:         itemID,
		Kind:           kind,
		Quantity:       qty,
		Reference:      entity.Reference{Kind: entity.ReferenceManual},
		IdempotencyKey: key,
		UserID:         "u-test",
	}
}

func inventoryUpdateExpiry(expiry *time.Time) inventory.UpdateItemInput {
	return inventory.UpdateItemInput{ExpiryDate: expiry}
}
