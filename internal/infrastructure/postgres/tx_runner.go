package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
)

var tracer = otel.Tracer("inventario-medico/postgres")

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED; el motor
// serializa por artículo con SELECT FOR UPDATE).
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn inventory.TxFunc) error {
	return r.run(ctx, "postgres.transaction", pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}, fn)
}

// RunSnapshot REPEATABLE READ de solo lectura: saldo e historial salen de la misma instantánea
// sin SELECT FOR UPDATE, así que no frena a los movimientos concurrentes.
func (r *TxRunner) RunSnapshot(ctx context.Context, fn inventory.TxFunc) error {
	return r.run(ctx, "postgres.snapshot", pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, name string, opts pgx.TxOptions, fn inventory.TxFunc) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		err = classify("begin transaction", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	// Rollback con contexto propio: debe completarse aunque ctx ya esté cancelado
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(ctx, NewInventoryMovementRepository(tx), NewInventoryItemRepository(tx), NewPurchaseOrderRepository(tx)); err != nil {
		span.RecordError(err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		err = classify("commit transaction", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
