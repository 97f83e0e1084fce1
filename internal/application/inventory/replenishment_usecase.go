package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	dominv "github.com/jhoicas/Inventario-medico/internal/domain/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición: artículos en low_stock o depleted
// con la cantidad sugerida para la próxima orden de compra. Solo lectura.
type ReplenishmentUseCase struct {
	itemRepo  repository.InventoryItemRepository
	generator ReplenishmentReportGenerator
	now       func() time.Time
}

// ReplenishmentReport datos de la hoja de pedido imprimible.
type ReplenishmentReport struct {
	Category           string
	GeneratedAt        time.Time
	Suggestions        []dto.ReplenishmentSuggestionDTO
	TotalEstimatedCost decimal.Decimal
}

// ReplenishmentReportGenerator renderiza la lista de reposición como documento (PDF).
type ReplenishmentReportGenerator interface {
	GenerateReplenishmentPDF(ctx context.Context, report ReplenishmentReport) ([]byte, error)
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(itemRepo repository.InventoryItemRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{itemRepo: itemRepo, now: time.Now}
}

// WithReportGenerator habilita la exportación en PDF.
func (uc *ReplenishmentUseCase) WithReportGenerator(g ReplenishmentReportGenerator) *ReplenishmentUseCase {
	uc.generator = g
	return uc
}

// ReplenishmentPDF genera la hoja de pedido y el nombre de archivo sugerido.
func (uc *ReplenishmentUseCase) ReplenishmentPDF(ctx context.Context, category string) ([]byte, string, error) {
	if uc.generator == nil {
		return nil, "", errors.New("reposición: generador de PDF no configurado")
	}
	list, err := uc.GenerateReplenishmentList(ctx, category)
	if err != nil {
		return nil, "", err
	}
	report := ReplenishmentReport{
		Category:           dominv.NormalizeCategory(category),
		GeneratedAt:        uc.now(),
		Suggestions:        list,
		TotalEstimatedCost: decimal.Zero,
	}
	for _, s := range list {
		report.TotalEstimatedCost = report.TotalEstimatedCost.Add(s.EstimatedOrderCost)
	}
	doc, err := uc.generator.GenerateReplenishmentPDF(ctx, report)
	if err != nil {
		return nil, "", fmt.Errorf("reposición: generar PDF: %w", err)
	}
	return doc, fmt.Sprintf("reposicion_%s.pdf", report.GeneratedAt.Format("20060102")), nil
}

// GenerateReplenishmentList devuelve los artículos bajo el umbral de reorden, ordenados por
// mayor déficit. Los caducados se omiten: se reponen dando de alta un lote nuevo.
// category vacía considera todo el catálogo.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, category string) ([]dto.ReplenishmentSuggestionDTO, error) {
	filter := repository.ItemFilter{Category: dominv.NormalizeCategory(category), Limit: 500}
	idealFactor := decimal.NewFromFloat(1.5)

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0)
	for {
		items, err := uc.itemRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.Status != entity.ItemStatusLowStock && item.Status != entity.ItemStatusDepleted {
				continue
			}
			// Stock ideal = umbral * 1.5 (mínimo 1 unidad por encima del umbral)
			ideal := decimal.NewFromInt(item.ReorderThreshold).Mul(idealFactor).Ceil().IntPart()
			if ideal <= item.ReorderThreshold {
				ideal = item.ReorderThreshold + 1
			}
			suggested := ideal - item.QuantityOnHand
			if suggested <= 0 {
				continue
			}
			suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
				ItemID:             item.ID,
				SKU:                item.SKU,
				Name:               item.Name,
				Category:           item.Category,
				Status:             string(item.Status),
				CurrentStock:       item.QuantityOnHand,
				ReorderThreshold:   item.ReorderThreshold,
				IdealStock:         ideal,
				SuggestedOrderQty:  suggested,
				UnitCost:           item.UnitCost,
				EstimatedOrderCost: decimal.NewFromInt(suggested).Mul(item.UnitCost),
			})
		}
		if len(items) < filter.Limit {
			break
		}
		filter.AfterID = items[len(items)-1].ID
	}

	// Mayor déficit bajo el umbral primero; desempate por costo estimado
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.ReorderThreshold - a.CurrentStock
		defB := b.ReorderThreshold - b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.EstimatedOrderCost.GreaterThan(b.EstimatedOrderCost)
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
