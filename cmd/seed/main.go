// seed carga el catálogo inicial desde un CSV exportado del sistema anterior y registra el
// saldo de apertura de cada artículo como movimiento inbound en el libro mayor.
//
// Uso: go run ./cmd/seed [-latin1] [ruta/catalogo.csv]
// Columnas: sku,nombre,categoria,umbral_reorden,costo_unitario,caducidad(YYYY-MM-DD),saldo_inicial
// Por defecto busca catalogo.csv en el directorio actual. Es reejecutable: los SKU ya cargados
// se omiten y el saldo de apertura usa una clave de idempotencia derivada del SKU.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Inventario-medico/internal/application/dto"
	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/bootstrap"
	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/pkg/config"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

type seedRow struct {
	line    int
	item    inventory.CreateItemInput
	opening int64
}

func main() {
	latin1 := flag.Bool("latin1", false, "el CSV está en ISO-8859-1 (exportaciones de Excel antiguas)")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed")

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var r io.Reader = f
	if *latin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	rows, err := readRows(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	deps, cleanup, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inicialización: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	created, skipped := 0, 0
	for _, row := range rows {
		item, err := deps.Catalog.CreateItem(ctx, row.item)
		if errors.Is(err, domain.ErrDuplicate) {
			skipped++
			continue
		}
		if err != nil {
			log.Error().Err(err).Int("line", row.line).Str("sku", row.item.SKU).Msg("alta de artículo")
			continue
		}
		created++
		if row.opening <= 0 {
			continue
		}
		_, err = deps.Engine.ApplyOpeningBalance(ctx, item.ID, row.item.SKU, row.opening, "seed")
		if err != nil {
			log.Error().Err(err).Int("line", row.line).Str("sku", row.item.SKU).Msg("saldo de apertura")
		}
	}
	log.Info().Int("created", created).Int("skipped", skipped).Int("rows", len(rows)).Msg("carga de catálogo completa")
}

func readRows(r io.Reader) ([]seedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7
	cr.TrimLeadingSpace = true

	var rows []seedRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "sku") {
			continue
		}
		row, err := parseRow(line, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(line int, rec []string) (seedRow, error) {
	threshold, err := strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64)
	if err != nil {
		return seedRow{}, fmt.Errorf("línea %d: umbral inválido: %w", line, err)
	}
	cost, err := decimal.NewFromString(strings.TrimSpace(rec[4]))
	if err != nil {
		return seedRow{}, fmt.Errorf("línea %d: costo inválido: %w", line, err)
	}
	expiryRaw := strings.TrimSpace(rec[5])
	expiry, err := dto.ParseDate(&expiryRaw)
	if err != nil {
		return seedRow{}, fmt.Errorf("línea %d: caducidad inválida: %w", line, err)
	}
	opening, err := strconv.ParseInt(strings.TrimSpace(rec[6]), 10, 64)
	if err != nil || opening < 0 {
		return seedRow{}, fmt.Errorf("línea %d: saldo inicial inválido", line)
	}
	return seedRow{
		line: line,
		item: inventory.CreateItemInput{
			SKU:              strings.TrimSpace(rec[0]),
			Name:             strings.TrimSpace(rec[1]),
			Category:         rec[2],
			ReorderThreshold: threshold,
			UnitCost:         cost,
			ExpiryDate:       expiry,
		},
		opening: opening,
	}, nil
}
