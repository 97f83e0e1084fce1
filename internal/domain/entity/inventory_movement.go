package entity

import (
	"strings"
	"time"
)

// MovementKind tipo de movimiento; la dirección se deriva del prefijo.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementInboundPurchase    MovementKind = "inbound_purchase"    // recepción de compra
	MovementOutboundDispense   MovementKind = "outbound_dispense"   // dispensación contra receta
	MovementOutboundAdjustment MovementKind = "outbound_adjustment" // ajuste manual
	MovementOutboundSpoilage   MovementKind = "outbound_spoilage"   // merma / caducado
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInboundPurchase, MovementOutboundDispense, MovementOutboundAdjustment, MovementOutboundSpoilage:
		return true
	}
	return false
}

// IsInbound true para inbound_*.
func (k MovementKind) IsInbound() bool {
	return strings.HasPrefix(string(k), "inbound_")
}

// Sign +1 para entradas, -1 para salidas.
func (k MovementKind) Sign() int64 {
	if k.IsInbound() {
		return 1
	}
	return -1
}

// Prefijos de clave de idempotencia reservados para los flujos internos. Un llamador externo
// no puede usarlos: una clave suya chocaría con la de una línea de orden o un saldo de apertura.
const (
	KeyPrefixPurchaseOrder  = "po:"
	KeyPrefixOpeningBalance = "seed:"
)

// IsReservedIdempotencyKey indica si la clave pertenece a un flujo interno.
func IsReservedIdempotencyKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefixPurchaseOrder) || strings.HasPrefix(key, KeyPrefixOpeningBalance)
}

// ReferenceKind flujo que causó el movimiento (solo trazabilidad).
type ReferenceKind string

const (
	ReferencePurchaseOrder ReferenceKind = "purchase_order"
	ReferencePrescription  ReferenceKind = "prescription"
	ReferenceManual        ReferenceKind = "manual"
)

// Reference apunta al documento de origen (orden de compra, receta).
type Reference struct {
	Kind ReferenceKind
	ID   string
}

// InventoryMovement entrada inmutable del libro mayor.
// Quantity siempre es positiva; el signo lo aporta Kind.
type InventoryMovement struct {
	ID             int64         `db:"id"`
	ItemID         string        `db:"item_id"`
	Kind           MovementKind  `db:"kind"`
	Quantity       int64         `db:"quantity"`
	ReferenceKind  ReferenceKind `db:"reference_kind"`
	ReferenceID    string        `db:"reference_id"`
	IdempotencyKey string        `db:"idempotency_key"`
	Note           string        `db:"note"`
	CreatedBy      string        `db:"created_by"`
	OccurredAt     time.Time     `db:"occurred_at"`
}

// SignedQuantity efecto del movimiento sobre el saldo.
func (m InventoryMovement) SignedQuantity() int64 {
	return m.Kind.Sign() * m.Quantity
}

// SameIntent compara el movimiento guardado con una nueva solicitud bajo la misma clave de idempotencia.
func (m InventoryMovement) SameIntent(itemID string, kind MovementKind, quantity int64) bool {
	return m.ItemID == itemID && m.Kind == kind && m.Quantity == quantity
}
