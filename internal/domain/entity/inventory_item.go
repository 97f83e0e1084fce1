package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus estado derivado de un artículo; nunca se asigna directamente.
type ItemStatus string

// Estados posibles de un artículo del catálogo.
const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusLowStock  ItemStatus = "low_stock"
	ItemStatusDepleted  ItemStatus = "depleted"
	ItemStatusExpired   ItemStatus = "expired"
)

// Valid indica si el estado es uno de los conocidos.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusLowStock, ItemStatusDepleted, ItemStatusExpired:
		return true
	}
	return false
}

// InventoryItem artículo almacenable (medicamento, insumo) con su saldo materializado.
// QuantityOnHand y Status solo los escribe el motor de stock; el resto pertenece al
// mantenimiento del catálogo. Version se incrementa en cada escritura (CAS).
type InventoryItem struct {
	ID               string          `db:"id"`
	SKU              string          `db:"sku"`
	Name             string          `db:"name"`
	Category         string          `db:"category"`
	QuantityOnHand   int64           `db:"quantity_on_hand"`
	ReorderThreshold int64           `db:"reorder_threshold"`
	UnitCost         decimal.Decimal `db:"unit_cost"`
	ExpiryDate       *time.Time      `db:"expiry_date"`
	Status           ItemStatus      `db:"status"`
	Version          int64           `db:"version"`
	RetiredAt        *time.Time      `db:"retired_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// IsRetired indica si el artículo fue dado de baja (retiro lógico).
func (i *InventoryItem) IsRetired() bool {
	return i.RetiredAt != nil
}

// Valuation valor del saldo actual: cantidad * costo unitario.
func (i *InventoryItem) Valuation() decimal.Decimal {
	return decimal.NewFromInt(i.QuantityOnHand).Mul(i.UnitCost)
}
