package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// atomically ejecuta fn en la transacción del repositorio, o en una propia que confirma al terminar.
func atomically(s *Store, t *tx, fn func(t *tx) error) error {
	if t != nil && t.snap != nil {
		return errReadOnly
	}
	if t != nil {
		return fn(t)
	}
	own := newTx(s)
	defer own.release()
	if err := fn(own); err != nil {
		return err
	}
	return own.commit()
}

func readView(s *Store, t *tx) *tx {
	if t != nil {
		return t
	}
	return newTx(s)
}

// ─── artículos ────────────────────────────────────────────────────────────────

type itemRepo struct {
	s  *Store
	tx *tx
}

var _ repository.InventoryItemRepository = (*itemRepo)(nil)

func (r *itemRepo) Create(_ context.Context, item *entity.InventoryItem) error {
	return atomically(r.s, r.tx, func(t *tx) error {
		if _, exists := t.item(item.ID); exists {
			return fmt.Errorf("artículo %s: %w", item.ID, domain.ErrDuplicate)
		}
		if item.Version == 0 {
			item.Version = 1
		}
		t.items[item.ID] = &stagedItem{item: *cloneItem(*item), created: true}
		return nil
	})
}

func (r *itemRepo) Get(_ context.Context, id string) (*entity.InventoryItem, error) {
	it, ok := readView(r.s, r.tx).item(id)
	if !ok {
		return nil, nil
	}
	return cloneItem(it), nil
}

func (r *itemRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error) {
	if r.tx != nil && r.tx.snap != nil {
		return nil, errReadOnly
	}
	if r.tx != nil {
		key := "item:" + id
		if !r.tx.holds(key) {
			if err := r.s.lockRow(ctx, key); err != nil {
				return nil, err
			}
			r.tx.acquired(key)
		}
	}
	return r.Get(ctx, id)
}

// update aplica mut sobre la versión visible si coincide con expectedVersion y la incrementa.
func (r *itemRepo) update(id string, expectedVersion int64, mut func(it *entity.InventoryItem)) error {
	return atomically(r.s, r.tx, func(t *tx) error {
		it, ok := t.item(id)
		if !ok || it.Version != expectedVersion {
			return fmt.Errorf("artículo %s versión %d: %w", id, expectedVersion, domain.ErrConflict)
		}
		base := it.Version
		mut(&it)
		it.Version++
		it.UpdatedAt = time.Now().UTC()
		t.stageItem(*cloneItem(it), base)
		return nil
	})
}

func (r *itemRepo) UpdateStock(_ context.Context, id string, expectedVersion, quantity int64, status entity.ItemStatus) error {
	if quantity < 0 {
		return fmt.Errorf("saldo negativo para %s: %w", id, domain.ErrInvalidQuantity)
	}
	return r.update(id, expectedVersion, func(it *entity.InventoryItem) {
		it.QuantityOnHand = quantity
		it.Status = status
	})
}

func (r *itemRepo) UpdateStatus(_ context.Context, id string, expectedVersion int64, status entity.ItemStatus) error {
	return r.update(id, expectedVersion, func(it *entity.InventoryItem) {
		it.Status = status
	})
}

func (r *itemRepo) UpdateAttributes(_ context.Context, item *entity.InventoryItem) error {
	return r.update(item.ID, item.Version, func(it *entity.InventoryItem) {
		it.Name = item.Name
		it.Category = item.Category
		it.ReorderThreshold = item.ReorderThreshold
		it.UnitCost = item.UnitCost
		it.ExpiryDate = item.ExpiryDate
	})
}

func (r *itemRepo) Retire(_ context.Context, id string, at time.Time) error {
	return atomically(r.s, r.tx, func(t *tx) error {
		it, ok := t.item(id)
		if !ok {
			return domain.ErrItemNotFound
		}
		base := it.Version
		at := at.UTC()
		it.RetiredAt = &at
		it.Version++
		it.UpdatedAt = at
		t.stageItem(*cloneItem(it), base)
		return nil
	})
}

func (r *itemRepo) List(_ context.Context, filter repository.ItemFilter) ([]*entity.InventoryItem, error) {
	t := readView(r.s, r.tx)

	var merged map[string]entity.InventoryItem
	if t.snap != nil {
		merged = make(map[string]entity.InventoryItem, len(t.snap.items))
		for id, it := range t.snap.items {
			merged[id] = it
		}
	} else {
		r.s.mu.Lock()
		merged = make(map[string]entity.InventoryItem, len(r.s.items)+len(t.items))
		for id, it := range r.s.items {
			merged[id] = it
		}
		r.s.mu.Unlock()
	}
	for id, st := range t.items {
		merged[id] = st.item
	}

	out := make([]*entity.InventoryItem, 0)
	for _, it := range merged {
		if filter.AfterID != "" && it.ID <= filter.AfterID {
			continue
		}
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if !filter.IncludeRetired && it.RetiredAt != nil {
			continue
		}
		out = append(out, cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ─── libro mayor ──────────────────────────────────────────────────────────────

type movementRepo struct {
	s  *Store
	tx *tx
}

var _ repository.InventoryMovementRepository = (*movementRepo)(nil)

func (r *movementRepo) Append(_ context.Context, mov *entity.InventoryMovement) (int64, error) {
	if mov.Quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	var id int64
	err := atomically(r.s, r.tx, func(t *tx) error {
		if mov.IdempotencyKey != "" {
			if _, dup := t.pendingByKey(mov.IdempotencyKey); dup {
				return fmt.Errorf("clave de idempotencia %s: %w", mov.IdempotencyKey, domain.ErrConflict)
			}
		}
		r.s.mu.Lock()
		r.s.nextMovID++
		id = r.s.nextMovID
		r.s.mu.Unlock()

		stored := *mov
		stored.ID = id
		stored.OccurredAt = stored.OccurredAt.UTC()
		t.movements = append(t.movements, stored)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *movementRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.InventoryMovement, error) {
	if key == "" {
		return nil, nil
	}
	if r.tx != nil {
		if m, ok := r.tx.pendingByKey(key); ok {
			return &m, nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx, ok := r.s.byKey[key]
	if !ok {
		return nil, nil
	}
	// Los índices son estables: una entrada existe en la instantánea si cae dentro de su longitud
	if r.tx != nil && r.tx.snap != nil && idx >= len(r.tx.snap.movements) {
		return nil, nil
	}
	m := r.s.movements[idx]
	return &m, nil
}

func (r *movementRepo) ListPage(_ context.Context, itemID string, after *repository.MovementCursor, limit int) ([]entity.InventoryMovement, error) {
	all := make([]entity.InventoryMovement, 0)
	if r.tx != nil && r.tx.snap != nil {
		for _, m := range r.tx.snap.movements {
			if m.ItemID == itemID {
				all = append(all, m)
			}
		}
	} else {
		r.s.mu.Lock()
		for _, m := range r.s.movements {
			if m.ItemID == itemID {
				all = append(all, m)
			}
		}
		r.s.mu.Unlock()
	}
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ItemID == itemID {
				all = append(all, m)
			}
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].OccurredAt.Equal(all[j].OccurredAt) {
			return all[i].OccurredAt.Before(all[j].OccurredAt)
		}
		return all[i].ID < all[j].ID
	})

	out := make([]entity.InventoryMovement, 0, limit)
	for _, m := range all {
		if after != nil {
			if m.OccurredAt.Before(after.OccurredAt) ||
				(m.OccurredAt.Equal(after.OccurredAt) && m.ID <= after.ID) {
				continue
			}
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─── órdenes de compra ────────────────────────────────────────────────────────

type orderRepo struct {
	s  *Store
	tx *tx
}

var _ repository.PurchaseOrderRepository = (*orderRepo)(nil)

func (r *orderRepo) Create(_ context.Context, order *entity.PurchaseOrder) error {
	return atomically(r.s, r.tx, func(t *tx) error {
		if _, exists := t.order(order.ID); exists {
			return fmt.Errorf("orden %s: %w", order.ID, domain.ErrDuplicate)
		}
		t.orders[order.ID] = &stagedOrder{order: *cloneOrder(*order), created: true}
		return nil
	})
}

func (r *orderRepo) Get(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	o, ok := readView(r.s, r.tx).order(id)
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if r.tx != nil && r.tx.snap != nil {
		return nil, errReadOnly
	}
	if r.tx != nil {
		key := "order:" + id
		if !r.tx.holds(key) {
			if err := r.s.lockRow(ctx, key); err != nil {
				return nil, err
			}
			r.tx.acquired(key)
		}
	}
	return r.Get(ctx, id)
}

func (r *orderRepo) MarkCompleted(_ context.Context, id string, at time.Time) error {
	return atomically(r.s, r.tx, func(t *tx) error {
		o, ok := t.order(id)
		if !ok {
			return domain.ErrNotFound
		}
		at := at.UTC()
		o.Status = entity.PurchaseOrderCompleted
		o.ReceivedAt = &at
		if st, staged := t.orders[id]; staged {
			st.order = o
			return nil
		}
		t.orders[id] = &stagedOrder{order: o}
		return nil
	})
}
