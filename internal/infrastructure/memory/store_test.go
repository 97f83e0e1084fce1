package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/memory"
)

func seedItem(t *testing.T, s *memory.Store, id string) {
	t.Helper()
	require.NoError(t, s.Items().Create(context.Background(), &entity.InventoryItem{
		ID:     id,
		SKU:    "SKU-" + id,
		Name:   id,
		Status: entity.ItemStatusDepleted,
	}))
}

func TestRun_ErrorDescartaEscrituras(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	boom := errors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context, movRepo repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		item, err := itemRepo.GetForUpdate(ctx, "a")
		require.NoError(t, err)
		_, err = movRepo.Append(ctx, &entity.InventoryMovement{ItemID: "a", Kind: entity.MovementInboundPurchase, Quantity: 5})
		require.NoError(t, err)
		require.NoError(t, itemRepo.UpdateStock(ctx, "a", item.Version, 5, entity.ItemStatusAvailable))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, err := s.Items().Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.QuantityOnHand)
	assert.Zero(t, s.MovementCount())
}

func TestRun_LeeSusPropiasEscrituras(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")

	err := s.Run(context.Background(), func(ctx context.Context, _ repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		item, err := itemRepo.GetForUpdate(ctx, "a")
		if err != nil {
			return err
		}
		if err := itemRepo.UpdateStock(ctx, "a", item.Version, 3, entity.ItemStatusLowStock); err != nil {
			return err
		}
		again, err := itemRepo.GetForUpdate(ctx, "a")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(3), again.QuantityOnHand)
		assert.Equal(t, item.Version+1, again.Version)
		return nil
	})

	require.NoError(t, err)
}

func TestUpdateStock_VersionVieja(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	ctx := context.Background()

	require.NoError(t, s.Items().UpdateStock(ctx, "a", 1, 2, entity.ItemStatusLowStock))
	err := s.Items().UpdateStock(ctx, "a", 1, 4, entity.ItemStatusLowStock)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, s.Items().UpdateStock(ctx, "a", 2, -1, entity.ItemStatusDepleted), domain.ErrInvalidQuantity)
}

func TestGetForUpdate_BloqueaHastaElCommit(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	locked := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = s.Run(context.Background(), func(ctx context.Context, _ repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
			if _, err := itemRepo.GetForUpdate(ctx, "a"); err != nil {
				return err
			}
			close(locked)
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(ctx context.Context, _ repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		_, err := itemRepo.GetForUpdate(ctx, "a")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-done
	err = s.Run(context.Background(), func(ctx context.Context, _ repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		_, err := itemRepo.GetForUpdate(ctx, "a")
		return err
	})
	assert.NoError(t, err)
}

func TestCreate_SKUDuplicado(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")

	err := s.Items().Create(context.Background(), &entity.InventoryItem{ID: "b", SKU: "SKU-a", Name: "b"})

	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestListPage_Cursor(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := s.Movements().Append(ctx, &entity.InventoryMovement{
			ItemID:     "a",
			Kind:       entity.MovementInboundPurchase,
			Quantity:   int64(i + 1),
			OccurredAt: base.Add(time.Duration(i/2) * time.Minute),
		})
		require.NoError(t, err)
	}

	first, err := s.Movements().ListPage(ctx, "a", nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	last := first[2]
	rest, err := s.Movements().ListPage(ctx, "a", &repository.MovementCursor{OccurredAt: last.OccurredAt, ID: last.ID}, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, int64(4), rest[0].Quantity)
	assert.Equal(t, int64(5), rest[1].Quantity)
}

func TestAppend_ClaveYaConfirmada(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	ctx := context.Background()
	mov := &entity.InventoryMovement{ItemID: "a", Kind: entity.MovementInboundPurchase, Quantity: 1, IdempotencyKey: "k-1"}

	_, err := s.Movements().Append(ctx, mov)
	require.NoError(t, err)
	_, err = s.Movements().Append(ctx, mov)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Movements().GetByIdempotencyKey(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 1, s.MovementCount())
}

func TestFailCommits(t *testing.T) {
	s := memory.NewStore()
	s.FailCommits(1, domain.ErrStorageUnavailable)

	err := s.Items().Create(context.Background(), &entity.InventoryItem{ID: "a", Name: "a"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	seedItem(t, s, "a")
}

func TestOrders_MarkCompleted(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders().Create(ctx, &entity.PurchaseOrder{ID: "oc-1", Supplier: "x", Status: entity.PurchaseOrderPending}))

	require.NoError(t, s.Orders().MarkCompleted(ctx, "oc-1", time.Now()))
	got, err := s.Orders().Get(ctx, "oc-1")
	require.NoError(t, err)
	assert.True(t, got.IsReceived())

	assert.ErrorIs(t, s.Orders().MarkCompleted(ctx, "oc-2", time.Now()), domain.ErrNotFound)
	missing, err := s.Orders().Get(ctx, "oc-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRunSnapshot_NoVeCommitsPosterioresNiBloquea(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")
	ctx := context.Background()
	_, err := s.Movements().Append(ctx, &entity.InventoryMovement{
		ItemID: "a", Kind: entity.MovementInboundPurchase, Quantity: 5, IdempotencyKey: "k-1",
	})
	require.NoError(t, err)

	err = s.RunSnapshot(ctx, func(ctx context.Context, movRepo repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		// Otra transacción escribe y confirma mientras la instantánea sigue abierta
		require.NoError(t, s.Run(ctx, func(ctx context.Context, mr repository.InventoryMovementRepository, ir repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
			item, err := ir.GetForUpdate(ctx, "a")
			if err != nil {
				return err
			}
			if _, err := mr.Append(ctx, &entity.InventoryMovement{ItemID: "a", Kind: entity.MovementInboundPurchase, Quantity: 7, IdempotencyKey: "k-2"}); err != nil {
				return err
			}
			return ir.UpdateStock(ctx, "a", item.Version, 7, entity.ItemStatusAvailable)
		}))

		item, err := itemRepo.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(0), item.QuantityOnHand)

		page, err := movRepo.ListPage(ctx, "a", nil, 10)
		require.NoError(t, err)
		assert.Len(t, page, 1)

		hit, err := movRepo.GetByIdempotencyKey(ctx, "k-1")
		require.NoError(t, err)
		assert.NotNil(t, hit)
		miss, err := movRepo.GetByIdempotencyKey(ctx, "k-2")
		require.NoError(t, err)
		assert.Nil(t, miss)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Items().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.QuantityOnHand)
}

func TestRunSnapshot_RechazaEscrituras(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "a")

	err := s.RunSnapshot(context.Background(), func(ctx context.Context, movRepo repository.InventoryMovementRepository, itemRepo repository.InventoryItemRepository, _ repository.PurchaseOrderRepository) error {
		_, err := itemRepo.GetForUpdate(ctx, "a")
		assert.Error(t, err)
		_, err = movRepo.Append(ctx, &entity.InventoryMovement{ItemID: "a", Kind: entity.MovementInboundPurchase, Quantity: 1})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, s.MovementCount())
}
