package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var itemColumns = []string{
	"id", "sku", "name", "category", "quantity_on_hand", "reorder_threshold", "unit_cost",
	"expiry_date", "status", "version", "retired_at", "created_at", "updated_at",
}

var _ repository.InventoryItemRepository = (*InventoryItemRepo)(nil)

// InventoryItemRepo catálogo de artículos sobre PostgreSQL (usable con pool o tx).
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

// Create inserta el artículo; un SKU repetido devuelve domain.ErrDuplicate.
func (r *InventoryItemRepo) Create(ctx context.Context, item *entity.InventoryItem) error {
	if item.Version == 0 {
		item.Version = 1
	}
	query, args, err := psql.Insert("inventory_items").
		Columns(itemColumns...).
		Values(
			item.ID, item.SKU, item.Name, item.Category, item.QuantityOnHand, item.ReorderThreshold,
			item.UnitCost, item.ExpiryDate, item.Status, item.Version, item.RetiredAt,
			item.CreatedAt, item.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert item: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return classify("create item", err)
	}
	return nil
}

// Get devuelve (nil, nil) si no existe.
func (r *InventoryItemRepo) Get(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción.
func (r *InventoryItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return r.get(ctx, id, true)
}

func (r *InventoryItemRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.InventoryItem, error) {
	b := psql.Select(itemColumns...).From("inventory_items").Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select item: %w", err)
	}
	var item entity.InventoryItem
	if err := pgxscan.Get(ctx, r.q, &item, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, classify("get item", err)
	}
	return &item, nil
}

// UpdateStock CAS sobre version: si otra transacción escribió primero no se actualiza ninguna fila.
func (r *InventoryItemRepo) UpdateStock(ctx context.Context, id string, expectedVersion, quantity int64, status entity.ItemStatus) error {
	return r.casUpdate(ctx, "update stock", id, expectedVersion, map[string]any{
		"quantity_on_hand": quantity,
		"status":           status,
	})
}

// UpdateStatus solo el estado derivado (barrido de caducidad, cambio de umbral).
func (r *InventoryItemRepo) UpdateStatus(ctx context.Context, id string, expectedVersion int64, status entity.ItemStatus) error {
	return r.casUpdate(ctx, "update status", id, expectedVersion, map[string]any{"status": status})
}

// UpdateAttributes campos de catálogo; usa item.Version como versión esperada.
func (r *InventoryItemRepo) UpdateAttributes(ctx context.Context, item *entity.InventoryItem) error {
	return r.casUpdate(ctx, "update item", item.ID, item.Version, map[string]any{
		"name":              item.Name,
		"category":          item.Category,
		"reorder_threshold": item.ReorderThreshold,
		"unit_cost":         item.UnitCost,
		"expiry_date":       item.ExpiryDate,
	})
}

func (r *InventoryItemRepo) casUpdate(ctx context.Context, op, id string, expectedVersion int64, set map[string]any) error {
	query, args, err := psql.Update("inventory_items").
		SetMap(set).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s versión %d: %w", op, id, expectedVersion, domain.ErrConflict)
	}
	return nil
}

// Retire retiro lógico; el artículo sigue existiendo para el historial.
func (r *InventoryItemRepo) Retire(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update("inventory_items").
		Set("retired_at", at).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build retire item: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return classify("retire item", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// List recorre el catálogo ordenado por id (paginación por cursor AfterID).
func (r *InventoryItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]*entity.InventoryItem, error) {
	b := psql.Select(itemColumns...).From("inventory_items").OrderBy("id")
	if filter.Category != "" {
		b = b.Where(sq.Eq{"category": filter.Category})
	}
	if !filter.IncludeRetired {
		b = b.Where(sq.Eq{"retired_at": nil})
	}
	if filter.AfterID != "" {
		b = b.Where(sq.Gt{"id": filter.AfterID})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list items: %w", err)
	}
	items := make([]*entity.InventoryItem, 0)
	if err := pgxscan.Select(ctx, r.q, &items, query, args...); err != nil {
		return nil, classify("list items", err)
	}
	return items, nil
}
