package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

func TestApplyMovement_DispensaDentroDelStock(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "AMOX-500", 10, 50)

	mov := f.apply(t, item.ID, entity.MovementOutboundDispense, 20, "rx-1:1")

	assert.Equal(t, int64(20), mov.Quantity)
	assert.NotZero(t, mov.ID)
	got := f.item(t, item.ID)
	assert.Equal(t, int64(30), got.QuantityOnHand)
	assert.Equal(t, entity.ItemStatusAvailable, got.Status)
	assert.Equal(t, 2, f.store.MovementCount())
}

func TestApplyMovement_StockInsuficienteNoModificaNada(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "IBU-400", 5, 4)

	_, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 5, "rx-2:1"))

	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(4), ise.Available)
	assert.Equal(t, int64(5), ise.Requested)
	assert.Equal(t, int64(4), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestApplyMovement_EstadoSeRecalcula(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "GASA", 10, 12)
	assert.Equal(t, entity.ItemStatusAvailable, f.item(t, item.ID).Status)

	f.apply(t, item.ID, entity.MovementOutboundAdjustment, 2, "")
	assert.Equal(t, entity.ItemStatusLowStock, f.item(t, item.ID).Status)

	f.apply(t, item.ID, entity.MovementOutboundSpoilage, 10, "")
	assert.Equal(t, entity.ItemStatusDepleted, f.item(t, item.ID).Status)
}

func TestApplyMovement_EscenarioA(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "SUERO-FIS", 20, 100)

	f.apply(t, item.ID, entity.MovementOutboundDispense, 85, "rx-100:1")
	got := f.item(t, item.ID)
	assert.Equal(t, int64(15), got.QuantityOnHand)
	assert.Equal(t, entity.ItemStatusLowStock, got.Status)

	f.apply(t, item.ID, entity.MovementOutboundDispense, 15, "rx-101:1")
	got = f.item(t, item.ID)
	assert.Equal(t, int64(0), got.QuantityOnHand)
	assert.Equal(t, entity.ItemStatusDepleted, got.Status)
}

func TestApplyMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "SUERO", 0, 3)
	ctx := context.Background()

	_, err := f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementInboundPurchase, 0, ""))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementInboundPurchase, -3, ""))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.engine.ApplyMovement(ctx, movement("no-existe", entity.MovementInboundPurchase, 1, ""))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementKind("outbound_gift"), 1, ""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.catalog.RetireItem(ctx, item.ID))
	_, err = f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementOutboundDispense, 1, ""))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.Equal(t, 1, f.store.MovementCount())
}

func TestApplyMovement_ReintentoIdempotente(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "JERINGA", 0, 10)

	first := f.apply(t, item.ID, entity.MovementOutboundDispense, 3, "rx-9:2")
	second := f.apply(t, item.ID, entity.MovementOutboundDispense, 3, "rx-9:2")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(7), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 2, f.store.MovementCount())
}

func TestApplyMovement_ReintentoTrasRetiroDevuelveElOriginal(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "JERINGA", 0, 10)
	first := f.apply(t, item.ID, entity.MovementOutboundDispense, 3, "rx-9:3")
	require.NoError(t, f.catalog.RetireItem(context.Background(), item.ID))

	second, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 3, "rx-9:3"))

	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(7), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 2, f.store.MovementCount())

	_, err = f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 3, "rx-9:4"))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestApplyMovement_RechazaClavesReservadas(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "GASA", 0, 10)
	ctx := context.Background()

	for _, key := range []string{
		inventory.LineIdempotencyKey("po-1", 1),
		inventory.OpeningBalanceKey("GASA"),
	} {
		_, err := f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementInboundPurchase, 1, key))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, key)
	}
	assert.Equal(t, int64(10), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestApplyOpeningBalance_Idempotente(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "GASA", 5, 0)
	ctx := context.Background()

	first, err := f.engine.ApplyOpeningBalance(ctx, item.ID, item.SKU, 40, "seed")
	require.NoError(t, err)
	second, err := f.engine.ApplyOpeningBalance(ctx, item.ID, item.SKU, 40, "seed")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, inventory.OpeningBalanceKey(item.SKU), first.IdempotencyKey)
	assert.Equal(t, int64(40), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestApplyMovement_ClaveReutilizadaConOtroMovimiento(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "JERINGA", 0, 10)
	f.apply(t, item.ID, entity.MovementOutboundDispense, 3, "rx-9:2")

	_, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 4, "rx-9:2"))

	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)
	assert.Equal(t, int64(7), f.item(t, item.ID).QuantityOnHand)
}

func TestApplyMovement_SalidasConcurrentesNoDejanSaldoNegativo(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "INSULINA", 0, 5)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 3, ""))
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactamente una dispensación debe fallar")
	assert.Equal(t, int64(2), f.item(t, item.ID).QuantityOnHand)
}

func TestApplyMovement_MuchosArticulosEnParalelo(t *testing.T) {
	f := newFixture(t)
	a := f.newItem(t, "A", 0, 100)
	b := f.newItem(t, "B", 0, 100)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := a.ID
			if i%2 == 1 {
				id = b.ID
			}
			_, err := f.engine.ApplyMovement(context.Background(), movement(id, entity.MovementOutboundDispense, 1, ""))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(80), f.item(t, a.ID).QuantityOnHand)
	assert.Equal(t, int64(80), f.item(t, b.ID).QuantityOnHand)
}

func TestApplyMovement_SaldoIgualASumaDelLibroMayor(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		item := f.newItem(t, "PROP", 5, 0)
		ctx := context.Background()
		kinds := []entity.MovementKind{
			entity.MovementInboundPurchase,
			entity.MovementOutboundDispense,
			entity.MovementOutboundAdjustment,
			entity.MovementOutboundSpoilage,
		}

		var expected int64
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for range steps {
			kind := rapid.SampledFrom(kinds).Draw(rt, "kind")
			qty := rapid.Int64Range(1, 20).Draw(rt, "qty")
			_, err := f.engine.ApplyMovement(ctx, movement(item.ID, kind, qty, ""))
			switch {
			case err == nil:
				expected += kind.Sign() * qty
			case errors.Is(err, domain.ErrInsufficientStock):
				if expected+kind.Sign()*qty >= 0 {
					rt.Fatalf("rechazo indebido: saldo %d, salida %d", expected, qty)
				}
			default:
				rt.Fatalf("error inesperado: %v", err)
			}
		}

		got, err := f.catalog.GetItem(ctx, item.ID)
		if err != nil {
			rt.Fatal(err)
		}
		if got.QuantityOnHand != expected || got.QuantityOnHand < 0 {
			rt.Fatalf("saldo %d, esperado %d", got.QuantityOnHand, expected)
		}
		res, err := f.reconcile.Reconcile(ctx, item.ID)
		if err != nil {
			rt.Fatal(err)
		}
		if !res.OK {
			rt.Fatalf("libro mayor %d distinto del saldo %d", res.LedgerSum, res.CatalogQuantity)
		}
	})
}

func TestApplyMovement_ReintentaAlmacenamientoNoDisponible(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "VENDA", 0, 10)
	f.store.FailCommits(2, domain.ErrStorageUnavailable)

	mov := f.apply(t, item.ID, entity.MovementOutboundDispense, 4, "rx-3:1")

	assert.NotZero(t, mov.ID)
	assert.Equal(t, int64(6), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 2, f.store.MovementCount())
}

func TestApplyMovement_AgotaReintentosDeAlmacenamiento(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "VENDA", 0, 10)
	f.store.FailCommits(100, domain.ErrStorageUnavailable)

	_, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 4, ""))
	f.store.FailCommits(0, nil)

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, int64(10), f.item(t, item.ID).QuantityOnHand)
}

func TestApplyMovement_AgotaReintentosDeConflicto(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "VENDA", 0, 10)
	f.store.FailCommits(100, domain.ErrConflict)

	_, err := f.engine.ApplyMovement(context.Background(), movement(item.ID, entity.MovementOutboundDispense, 4, ""))
	f.store.FailCommits(0, nil)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestApplyMovement_ConfirmacionPerdidaNoDuplica(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "ALCOHOL", 0, 10)
	f.store.FailAfterCommit(1, domain.ErrStorageUnavailable)

	// El primer intento se confirma pero el llamador ve un error; el reintento usa la misma clave
	mov := f.apply(t, item.ID, entity.MovementOutboundDispense, 4, "rx-7:1")

	assert.Equal(t, int64(6), f.item(t, item.ID).QuantityOnHand)
	assert.Equal(t, 2, f.store.MovementCount())
	assert.Equal(t, "rx-7:1", mov.IdempotencyKey)
}

func TestApplyMovement_ContextoCancelado(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "ALCOHOL", 0, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.ApplyMovement(ctx, movement(item.ID, entity.MovementOutboundDispense, 4, ""))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(10), f.item(t, item.ID).QuantityOnHand)
}

func TestRefreshStatus_Caducidad(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "VACUNA", 2, 20)
	expiry := fixedNow.AddDate(0, 0, 1)
	_, err := f.catalog.UpdateItem(context.Background(), item.ID, inventoryUpdateExpiry(&expiry))
	require.NoError(t, err)
	assert.Equal(t, entity.ItemStatusAvailable, f.item(t, item.ID).Status)

	f.now = fixedNow.AddDate(0, 0, 2)
	changed, err := f.engine.RefreshStatus(context.Background(), item.ID)

	require.NoError(t, err)
	assert.True(t, changed)
	got := f.item(t, item.ID)
	assert.Equal(t, entity.ItemStatusExpired, got.Status)
	assert.Equal(t, int64(20), got.QuantityOnHand)
	assert.Equal(t, 1, f.store.MovementCount())
}
