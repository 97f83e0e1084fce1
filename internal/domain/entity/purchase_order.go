package entity

import "time"

// PurchaseOrderStatus estado de la orden de compra.
type PurchaseOrderStatus string

const (
	PurchaseOrderPending   PurchaseOrderStatus = "pending"
	PurchaseOrderCompleted PurchaseOrderStatus = "completed"
)

// PurchaseOrder cabecera de la orden de compra a proveedor.
// Este servicio solo la consulta y la marca como recibida.
type PurchaseOrder struct {
	ID         string              `db:"id"`
	Supplier   string              `db:"supplier"`
	Status     PurchaseOrderStatus `db:"status"`
	Note       string              `db:"note"`
	ReceivedAt *time.Time          `db:"received_at"`
	CreatedAt  time.Time           `db:"created_at"`
}

// IsReceived indica si la orden ya se recibió completa.
func (p *PurchaseOrder) IsReceived() bool {
	return p.Status == PurchaseOrderCompleted
}
