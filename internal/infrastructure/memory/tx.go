package memory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

type stagedItem struct {
	item        entity.InventoryItem
	baseVersion int64
	created     bool
}

type stagedOrder struct {
	order   entity.PurchaseOrder
	created bool
}

var errReadOnly = errors.New("memory: escritura en una transacción de solo lectura")

// snapshot estado confirmado visible para una transacción de solo lectura.
type snapshot struct {
	items     map[string]entity.InventoryItem
	orders    map[string]entity.PurchaseOrder
	movements []entity.InventoryMovement
}

// tx escrituras pendientes y bloqueos de fila de una transacción.
type tx struct {
	s         *Store
	snap      *snapshot
	held      []string
	heldSet   map[string]bool
	items     map[string]*stagedItem
	orders    map[string]*stagedOrder
	movements []entity.InventoryMovement
}

func newTx(s *Store) *tx {
	return &tx{
		s:       s,
		heldSet: make(map[string]bool),
		items:   make(map[string]*stagedItem),
		orders:  make(map[string]*stagedOrder),
	}
}

func (t *tx) holds(key string) bool {
	return t.heldSet[key]
}

func (t *tx) acquired(key string) {
	t.heldSet[key] = true
	t.held = append(t.held, key)
}

// release libera los bloqueos de fila al terminar la transacción (commit o rollback).
func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.unlockRow(t.held[i])
	}
	t.held = nil
	t.heldSet = make(map[string]bool)
}

// item vista de lectura: primero lo escrito en esta transacción, luego lo confirmado.
func (t *tx) item(id string) (entity.InventoryItem, bool) {
	if st, ok := t.items[id]; ok {
		return st.item, true
	}
	if t.snap != nil {
		it, ok := t.snap.items[id]
		return it, ok
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	it, ok := t.s.items[id]
	return it, ok
}

func (t *tx) stageItem(item entity.InventoryItem, baseVersion int64) {
	if st, ok := t.items[item.ID]; ok {
		st.item = item
		return
	}
	t.items[item.ID] = &stagedItem{item: item, baseVersion: baseVersion}
}

func (t *tx) order(id string) (entity.PurchaseOrder, bool) {
	if st, ok := t.orders[id]; ok {
		return st.order, true
	}
	if t.snap != nil {
		o, ok := t.snap.orders[id]
		return o, ok
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	o, ok := t.s.orders[id]
	return o, ok
}

func (t *tx) pendingByKey(key string) (entity.InventoryMovement, bool) {
	for _, m := range t.movements {
		if m.IdempotencyKey == key {
			return m, true
		}
	}
	return entity.InventoryMovement{}, false
}

// commit valida todas las escrituras contra el estado confirmado y solo entonces las aplica.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Solo lectura: no hay nada que confirmar
	if len(t.items) == 0 && len(t.orders) == 0 && len(t.movements) == 0 {
		return nil
	}
	if s.failCommits > 0 {
		s.failCommits--
		return s.failCommitErr
	}

	for id, st := range t.items {
		cur, exists := s.items[id]
		if st.created {
			if exists {
				return fmt.Errorf("artículo %s: %w", id, domain.ErrDuplicate)
			}
			if st.item.SKU != "" {
				for _, other := range s.items {
					if other.SKU == st.item.SKU {
						return fmt.Errorf("sku %s: %w", st.item.SKU, domain.ErrDuplicate)
					}
				}
			}
			continue
		}
		if !exists || cur.Version != st.baseVersion {
			return fmt.Errorf("artículo %s: %w", id, domain.ErrConflict)
		}
	}
	for id, st := range t.orders {
		if _, exists := s.orders[id]; st.created && exists {
			return fmt.Errorf("orden %s: %w", id, domain.ErrDuplicate)
		}
	}
	for _, m := range t.movements {
		if m.IdempotencyKey == "" {
			continue
		}
		if _, exists := s.byKey[m.IdempotencyKey]; exists {
			return fmt.Errorf("clave de idempotencia %s: %w", m.IdempotencyKey, domain.ErrConflict)
		}
	}

	for id, st := range t.items {
		s.items[id] = st.item
	}
	for id, st := range t.orders {
		s.orders[id] = st.order
	}
	// Los IDs se asignan en Append; dos transacciones pueden confirmar en otro orden
	pending := append([]entity.InventoryMovement(nil), t.movements...)
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	for _, m := range pending {
		s.movements = append(s.movements, m)
		if m.IdempotencyKey != "" {
			s.byKey[m.IdempotencyKey] = len(s.movements) - 1
		}
	}
	t.items = make(map[string]*stagedItem)
	t.orders = make(map[string]*stagedOrder)
	t.movements = nil

	if s.failAfterCommit > 0 {
		s.failAfterCommit--
		return s.failAfterErr
	}
	return nil
}
