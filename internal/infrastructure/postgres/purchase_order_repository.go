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

var orderColumns = []string{"id", "supplier", "status", "note", "received_at", "created_at"}

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	query, args, err := psql.Insert("purchase_orders").
		Columns(orderColumns...).
		Values(order.ID, order.Supplier, order.Status, order.Note, order.ReceivedAt, order.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert order: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return classify("create purchase order", err)
	}
	return nil
}

func (r *PurchaseOrderRepo) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, id, false)
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, id, true)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.PurchaseOrder, error) {
	b := psql.Select(orderColumns...).From("purchase_orders").Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select order: %w", err)
	}
	var o entity.PurchaseOrder
	if err := pgxscan.Get(ctx, r.q, &o, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, classify("get purchase order", err)
	}
	return &o, nil
}

func (r *PurchaseOrderRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update("purchase_orders").
		Set("status", entity.PurchaseOrderCompleted).
		Set("received_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete order: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return classify("complete purchase order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
