// Package pdf genera la hoja de pedido de reposición para compras.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + categoría  │  Fecha de generación          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Prio | SKU | Artículo | Stock | Umbral | Pedir | $   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL ESTIMADO                                              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// MarotoReportGenerator implementa inventory.ReplenishmentReportGenerator usando Maroto v2.
type MarotoReportGenerator struct {
	organization string
}

var _ inventory.ReplenishmentReportGenerator = (*MarotoReportGenerator)(nil)

// NewMarotoReportGenerator construye el generador; organization aparece como autor del documento.
func NewMarotoReportGenerator(organization string) *MarotoReportGenerator {
	return &MarotoReportGenerator{organization: organization}
}

// GenerateReplenishmentPDF genera el PDF y devuelve sus bytes.
func (g *MarotoReportGenerator) GenerateReplenishmentPDF(_ context.Context, report inventory.ReplenishmentReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Lista de reposición", true).
		WithAuthor(g.organization, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(report.Suggestions) == 0 {
		m.AddRows(row.New(12).Add(col.New(12).Add(
			text.New("Ningún artículo está bajo su umbral de reorden.", props.Text{
				Size: 10, Align: align.Center, Top: 4, Color: colorGray,
			}),
		)))
	} else {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableRows(report.Suggestions)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(report))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(report inventory.ReplenishmentReport) core.Row {
	scope := "Todo el catálogo"
	if report.Category != "" {
		scope = "Categoría: " + report.Category
	}
	return row.New(16).Add(
		col.New(8).Add(
			text.New("LISTA DE REPOSICIÓN", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(scope, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generada: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New(fmt.Sprintf("%d artículos", len(report.Suggestions)), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 9,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("SKU", 2, align.Left),
		h("Artículo", 4, align.Left),
		h("Stock", 1, align.Right),
		h("Umbral", 1, align.Right),
		h("Pedir", 1, align.Right),
		h("Costo est.", 2, align.Right),
	)
}

func tableRows(list []dto.ReplenishmentSuggestionDTO) []core.Row {
	rows := make([]core.Row, 0, len(list))
	for _, s := range list {
		stock := props.Text{Size: 8, Align: align.Right, Top: 1}
		if s.CurrentStock == 0 {
			stock.Color = colorAlert
			stock.Style = fontstyle.Bold
		}
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(s.Priority), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(s.SKU, props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New(s.Name, props.Text{Size: 8, Top: 1})),
			col.New(1).Add(text.New(strconv.FormatInt(s.CurrentStock, 10), stock)),
			col.New(1).Add(text.New(strconv.FormatInt(s.ReorderThreshold, 10), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(1).Add(text.New(strconv.FormatInt(s.SuggestedOrderQty, 10), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1})),
			col.New(2).Add(text.New("$"+formatMoney(s.EstimatedOrderCost.StringFixed(0)), props.Text{Size: 8, Align: align.Right, Top: 1})),
		))
	}
	return rows
}

func totalRow(report inventory.ReplenishmentReport) core.Row {
	return row.New(12).Add(
		col.New(8),
		col.New(2).Add(text.New("TOTAL ESTIMADO:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 3,
		})),
		col.New(2).Add(text.New("$"+formatMoney(report.TotalEstimatedCost.StringFixed(0)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 3,
		})),
	)
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "-1000000" → "-1.000.000"
func formatMoney(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
