package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// idempotency_key se guarda NULL cuando no hay clave (índice único parcial).
var movementColumns = []string{
	"id", "item_id", "kind", "quantity", "reference_kind", "reference_id",
	"COALESCE(idempotency_key, '') AS idempotency_key", "note", "created_by", "occurred_at",
}

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo libro mayor sobre PostgreSQL. Solo inserta; un trigger de la BD
// rechaza UPDATE y DELETE sobre la tabla.
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Append inserta el movimiento y devuelve el id de la secuencia. OccurredAt queda con la
// precisión que guarda la BD (microsegundos) para que el cursor de historial sea exacto.
func (r *InventoryMovementRepo) Append(ctx context.Context, movement *entity.InventoryMovement) (int64, error) {
	query, args, err := psql.Insert("inventory_movements").
		Columns("item_id", "kind", "quantity", "reference_kind", "reference_id",
			"idempotency_key", "note", "created_by", "occurred_at").
		Values(
			movement.ItemID, movement.Kind, movement.Quantity, movement.ReferenceKind, movement.ReferenceID,
			nullIfEmpty(movement.IdempotencyKey), movement.Note, movement.CreatedBy, movement.OccurredAt,
		).
		Suffix("RETURNING id, occurred_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert movement: %w", err)
	}
	var id int64
	if err := r.q.QueryRow(ctx, query, args...).Scan(&id, &movement.OccurredAt); err != nil {
		return 0, classify("append movement", err)
	}
	return id, nil
}

// GetByIdempotencyKey devuelve (nil, nil) si la clave no se ha usado.
func (r *InventoryMovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.InventoryMovement, error) {
	if key == "" {
		return nil, nil
	}
	query, args, err := psql.Select(movementColumns...).
		From("inventory_movements").
		Where(sq.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select movement: %w", err)
	}
	var m entity.InventoryMovement
	if err := pgxscan.Get(ctx, r.q, &m, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, classify("get movement by key", err)
	}
	return &m, nil
}

// ListPage paginación por (occurred_at, id); usa el índice (item_id, occurred_at, id).
func (r *InventoryMovementRepo) ListPage(ctx context.Context, itemID string, after *repository.MovementCursor, limit int) ([]entity.InventoryMovement, error) {
	b := psql.Select(movementColumns...).
		From("inventory_movements").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("occurred_at", "id")
	if after != nil {
		b = b.Where(sq.Expr("(occurred_at, id) > (?, ?)", after.OccurredAt, after.ID))
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list movements: %w", err)
	}
	out := make([]entity.InventoryMovement, 0)
	if err := pgxscan.Select(ctx, r.q, &out, query, args...); err != nil {
		return nil, classify("list movements", err)
	}
	return out, nil
}
