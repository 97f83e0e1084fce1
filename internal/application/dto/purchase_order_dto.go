package dto

import "time"

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	Supplier string `json:"supplier"`
	Note     string `json:"note,omitempty"`
}

// PurchaseOrderResponse orden de compra.
type PurchaseOrderResponse struct {
	ID         string     `json:"id"`
	Supplier   string     `json:"supplier"`
	Status     string     `json:"status"`
	Note       string     `json:"note,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReceiptLineRequest línea confirmada por el proveedor.
type ReceiptLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// ReceiveOrderRequest body para POST /api/purchase-orders/:id/receive.
type ReceiveOrderRequest struct {
	Lines []ReceiptLineRequest `json:"lines"`
	Note  string               `json:"note,omitempty"`
}

// ReceiptLineResponse movimiento generado por una línea.
type ReceiptLineResponse struct {
	Line       int    `json:"line"`
	ItemID     string `json:"item_id"`
	Quantity   int64  `json:"quantity"`
	MovementID int64  `json:"movement_id"`
}

// ReceiptResponse recepción aplicada.
type ReceiptResponse struct {
	OrderID    string                `json:"order_id"`
	ReceivedAt time.Time             `json:"received_at"`
	Lines      []ReceiptLineResponse `json:"lines"`
}

// ReceiptLineFailure línea que hizo abortar la recepción.
type ReceiptLineFailure struct {
	Line     int    `json:"line"`
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}
