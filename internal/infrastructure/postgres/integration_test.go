package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-medico/pkg/config"
)

// Requiere una base de datos desechable: TEST_DATABASE_URL=postgres://...
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type pgFixture struct {
	engine    *inventory.StockEngine
	catalog   *inventory.CatalogUseCase
	reconcile *inventory.ReconcileUseCase
	receiving *inventory.ReceivingUseCase
	ledger    *inventory.Ledger
}

func newPGFixture(t *testing.T) *pgFixture {
	pool := testPool(t)
	runner := postgres.NewTxRunner(pool)
	items := postgres.NewInventoryItemRepository(pool)
	engine := inventory.NewStockEngine(runner, inventory.DefaultEngineConfig(), nil)
	return &pgFixture{
		engine:    engine,
		catalog:   inventory.NewCatalogUseCase(runner, items, engine),
		reconcile: inventory.NewReconcileUseCase(runner, items, 0, nil),
		receiving: inventory.NewReceivingUseCase(runner, items, engine, inventory.DefaultReceivingConfig(), nil),
		ledger:    inventory.NewLedger(postgres.NewInventoryMovementRepository(pool), 2),
	}
}

func (f *pgFixture) newItem(t *testing.T, qty int64) *entity.InventoryItem {
	t.Helper()
	ctx := context.Background()
	expiry := time.Now().AddDate(1, 0, 0)
	item, err := f.catalog.CreateItem(ctx, inventory.CreateItemInput{
		SKU:              "IT-" + uuid.NewString(),
		Name:             "Artículo de integración",
		Category:         "Pruebas",
		ReorderThreshold: 2,
		UnitCost:         decimal.RequireFromString("12.5"),
		ExpiryDate:       &expiry,
	})
	require.NoError(t, err)
	if qty > 0 {
		_, err = f.engine.ApplyMovement(ctx, inventory.MovementCommand{
			ItemID: item.ID, Kind: entity.MovementInboundPurchase, Quantity: qty,
			Reference: entity.Reference{Kind: entity.ReferenceManual},
		})
		require.NoError(t, err)
	}
	return item
}

func TestPostgres_MovimientosConcurrentes(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	item := f.newItem(t, 5)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.ApplyMovement(ctx, inventory.MovementCommand{
				ItemID: item.ID, Kind: entity.MovementOutboundDispense, Quantity: 3,
				Reference: entity.Reference{Kind: entity.ReferencePrescription, ID: "rx"},
			})
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	res, err := f.reconcile.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(2), res.CatalogQuantity)
}

func TestPostgres_IdempotenciaYDecimal(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	item := f.newItem(t, 10)
	key := "rx-" + uuid.NewString()
	cmd := inventory.MovementCommand{
		ItemID: item.ID, Kind: entity.MovementOutboundDispense, Quantity: 4, IdempotencyKey: key,
		Reference: entity.Reference{Kind: entity.ReferencePrescription, ID: "rx"},
	}

	first, err := f.engine.ApplyMovement(ctx, cmd)
	require.NoError(t, err)
	second, err := f.engine.ApplyMovement(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	cmd.Quantity = 5
	_, err = f.engine.ApplyMovement(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)

	got, err := f.catalog.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.QuantityOnHand)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.UnitCost))
	assert.Equal(t, "pruebas", got.Category)

	history, err := f.ledger.List(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPostgres_RecepcionAbortada(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	item := f.newItem(t, 0)
	order, err := f.receiving.CreateOrder(ctx, "Proveedor", "")
	require.NoError(t, err)

	_, err = f.receiving.Receive(ctx, inventory.ReceiptCommand{
		OrderID: order.ID,
		Lines:   []inventory.ReceiptLine{{ItemID: item.ID, Quantity: 5}, {ItemID: uuid.NewString(), Quantity: 1}},
	})
	var rerr *inventory.ReceiptError
	require.ErrorAs(t, err, &rerr)

	history, err := f.ledger.List(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	res, err := f.receiving.Receive(ctx, inventory.ReceiptCommand{
		OrderID: order.ID,
		Lines:   []inventory.ReceiptLine{{ItemID: item.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Lines, 1)
	got, err := f.receiving.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReceived())
}
