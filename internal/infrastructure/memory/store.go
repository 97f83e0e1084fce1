// Package memory almacén en memoria que cumple los mismos puertos que Postgres.
// Se usa en tests y con STORE_DRIVER=memory para ejecutar el servicio sin base de datos.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// Store estado compartido. Las transacciones bloquean filas con canales (uno por fila)
// y acumulan sus escrituras, que se validan y aplican juntas en el commit bajo mu.
type Store struct {
	mu        sync.Mutex
	items     map[string]entity.InventoryItem
	movements []entity.InventoryMovement
	byKey     map[string]int
	orders    map[string]entity.PurchaseOrder
	nextMovID int64
	rowLocks  map[string]chan struct{}

	failCommits     int
	failCommitErr   error
	failAfterCommit int
	failAfterErr    error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		items:    make(map[string]entity.InventoryItem),
		byKey:    make(map[string]int),
		orders:   make(map[string]entity.PurchaseOrder),
		rowLocks: make(map[string]chan struct{}),
	}
}

var _ inventory.TxRunner = (*Store)(nil)

// Run ejecuta fn con repositorios atados a una transacción nueva. Si fn devuelve error
// se descartan las escrituras; si no, se confirman todas o ninguna.
func (s *Store) Run(ctx context.Context, fn inventory.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	defer t.release()

	if err := fn(ctx, &movementRepo{s: s, tx: t}, &itemRepo{s: s, tx: t}, &orderRepo{s: s, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

// RunSnapshot ejecuta fn sobre una copia del estado confirmado tomada al empezar.
// No bloquea filas; cualquier escritura devuelve error.
func (s *Store) RunSnapshot(ctx context.Context, fn inventory.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	t.snap = s.takeSnapshot()
	return fn(ctx, &movementRepo{s: s, tx: t}, &itemRepo{s: s, tx: t}, &orderRepo{s: s, tx: t})
}

// takeSnapshot copia artículos y órdenes; del libro mayor basta con fijar su longitud,
// porque las entradas confirmadas nunca se modifican.
func (s *Store) takeSnapshot() *snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &snapshot{
		items:     make(map[string]entity.InventoryItem, len(s.items)),
		orders:    make(map[string]entity.PurchaseOrder, len(s.orders)),
		movements: s.movements[:len(s.movements):len(s.movements)],
	}
	for id, it := range s.items {
		snap.items[id] = it
	}
	for id, o := range s.orders {
		snap.orders[id] = o
	}
	return snap
}

// Items repositorio de artículos fuera de transacción (cada escritura confirma sola).
func (s *Store) Items() repository.InventoryItemRepository { return &itemRepo{s: s} }

// Movements repositorio del libro mayor fuera de transacción.
func (s *Store) Movements() repository.InventoryMovementRepository { return &movementRepo{s: s} }

// Orders repositorio de órdenes de compra fuera de transacción.
func (s *Store) Orders() repository.PurchaseOrderRepository { return &orderRepo{s: s} }

// FailCommits hace fallar los próximos n commits con err sin aplicar nada.
// Simula caídas del almacenamiento (ErrStorageUnavailable) o conflictos de serialización.
func (s *Store) FailCommits(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits, s.failCommitErr = n, err
}

// FailAfterCommit los próximos n commits se aplican pero devuelven err,
// como una confirmación perdida en la red.
func (s *Store) FailAfterCommit(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfterCommit, s.failAfterErr = n, err
}

// ForceQuantity sobrescribe el saldo sin pasar por el libro mayor (solo para simular corrupción).
func (s *Store) ForceQuantity(itemID string, qty int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return false
	}
	item.QuantityOnHand = qty
	s.items[itemID] = item
	return true
}

// MovementCount total de entradas confirmadas en el libro mayor.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// lockRow espera el bloqueo exclusivo de la fila o la cancelación del contexto.
func (s *Store) lockRow(ctx context.Context, key string) error {
	s.mu.Lock()
	ch, ok := s.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[key] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockRow(key string) {
	s.mu.Lock()
	ch := s.rowLocks[key]
	s.mu.Unlock()
	<-ch
}

func cloneItem(in entity.InventoryItem) *entity.InventoryItem {
	out := in
	if in.ExpiryDate != nil {
		d := *in.ExpiryDate
		out.ExpiryDate = &d
	}
	if in.RetiredAt != nil {
		r := *in.RetiredAt
		out.RetiredAt = &r
	}
	return &out
}

func cloneOrder(in entity.PurchaseOrder) *entity.PurchaseOrder {
	out := in
	if in.ReceivedAt != nil {
		r := *in.ReceivedAt
		out.ReceivedAt = &r
	}
	return &out
}
