package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

// PurchaseOrderRepository puerto para las órdenes de compra que recibe el inventario.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	Get(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}
