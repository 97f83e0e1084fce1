package http

import (
	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

func toItemResponse(item *entity.InventoryItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:               item.ID,
		SKU:              item.SKU,
		Name:             item.Name,
		Category:         item.Category,
		QuantityOnHand:   item.QuantityOnHand,
		ReorderThreshold: item.ReorderThreshold,
		UnitCost:         item.UnitCost,
		ExpiryDate:       dto.FormatDate(item.ExpiryDate),
		Status:           string(item.Status),
		Version:          item.Version,
		Retired:          item.IsRetired(),
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func toMovementResponse(m *entity.InventoryMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		ItemID:         m.ItemID,
		Kind:           string(m.Kind),
		Quantity:       m.Quantity,
		SignedQuantity: m.SignedQuantity(),
		ReferenceKind:  string(m.ReferenceKind),
		ReferenceID:    m.ReferenceID,
		IdempotencyKey: m.IdempotencyKey,
		Note:           m.Note,
		CreatedBy:      m.CreatedBy,
		OccurredAt:     m.OccurredAt,
	}
}

func toOrderResponse(o *entity.PurchaseOrder) dto.PurchaseOrderResponse {
	return dto.PurchaseOrderResponse{
		ID:         o.ID,
		Supplier:   o.Supplier,
		Status:     string(o.Status),
		Note:       o.Note,
		ReceivedAt: o.ReceivedAt,
		CreatedAt:  o.CreatedAt,
	}
}

func toReceiptResponse(r *inventory.ReceiptResult) dto.ReceiptResponse {
	lines := make([]dto.ReceiptLineResponse, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, dto.ReceiptLineResponse{Line: l.Line, ItemID: l.ItemID, Quantity: l.Quantity, MovementID: l.MovementID})
	}
	return dto.ReceiptResponse{OrderID: r.OrderID, ReceivedAt: r.ReceivedAt, Lines: lines}
}
