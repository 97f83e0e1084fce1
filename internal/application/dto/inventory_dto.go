package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato de fechas de caducidad en la API.
const DateLayout = "2006-01-02"

// RegisterMovementRequest body para POST /api/inventory/movements.
// La clave de idempotencia también puede venir en el header Idempotency-Key.
type RegisterMovementRequest struct {
	ItemID         string `json:"item_id"`
	Kind           string `json:"kind"`
	Quantity       int64  `json:"quantity"`
	ReferenceKind  string `json:"reference_kind,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Note           string `json:"note,omitempty"`
}

// MovementResponse entrada del libro mayor.
type MovementResponse struct {
	ID             int64     `json:"id"`
	ItemID         string    `json:"item_id"`
	Kind           string    `json:"kind"`
	Quantity       int64     `json:"quantity"`
	SignedQuantity int64     `json:"signed_quantity"`
	ReferenceKind  string    `json:"reference_kind,omitempty"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// HistoryResponse historial de un artículo, más antiguo primero.
type HistoryResponse struct {
	ItemID    string             `json:"item_id"`
	Movements []MovementResponse `json:"movements"`
}

// CreateItemRequest body para POST /api/inventory/items. expiry_date en formato YYYY-MM-DD.
type CreateItemRequest struct {
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ExpiryDate       *string         `json:"expiry_date,omitempty"`
}

// UpdateItemRequest body para PATCH /api/inventory/items/:id. Campos omitidos no cambian.
type UpdateItemRequest struct {
	Name             *string          `json:"name,omitempty"`
	Category         *string          `json:"category,omitempty"`
	ReorderThreshold *int64           `json:"reorder_threshold,omitempty"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
	ExpiryDate       *string          `json:"expiry_date,omitempty"`
	ClearExpiry      bool             `json:"clear_expiry,omitempty"`
}

// ItemResponse artículo del catálogo.
type ItemResponse struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	QuantityOnHand   int64           `json:"quantity_on_hand"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ExpiryDate       *string         `json:"expiry_date,omitempty"`
	Status           string          `json:"status"`
	Version          int64           `json:"version"`
	Retired          bool            `json:"retired"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ReconciliationResponse resultado de GET /api/inventory/items/:id/reconcile.
type ReconciliationResponse struct {
	ItemID          string `json:"item_id"`
	OK              bool   `json:"ok"`
	LedgerSum       int64  `json:"ledger_sum"`
	CatalogQuantity int64  `json:"catalog_quantity"`
	Entries         int    `json:"entries"`
}

// StatsResponse agregados de GET /api/inventory/stats.
type StatsResponse struct {
	Category       string          `json:"category,omitempty"`
	TotalItems     int             `json:"total_items"`
	LowStockCount  int             `json:"low_stock_count"`
	ExpiredCount   int             `json:"expired_count"`
	DepletedCount  int             `json:"depleted_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

// InsufficientStockDetails detalle del faltante para el usuario.
type InsufficientStockDetails struct {
	ItemID    string `json:"item_id"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
	Shortfall int64  `json:"shortfall"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un artículo
// que se encuentra en o por debajo de su umbral de reorden.
type ReplenishmentSuggestionDTO struct {
	ItemID             string          `json:"item_id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	Status             string          `json:"status"`
	CurrentStock       int64           `json:"current_stock"`
	ReorderThreshold   int64           `json:"reorder_threshold"`
	IdealStock         int64           `json:"ideal_stock"`          // ReorderThreshold * 1.5
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// ParseDate convierte YYYY-MM-DD a medianoche UTC. nil o vacío devuelve nil.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate inverso de ParseDate.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(DateLayout)
	return &s
}
