// Package bootstrap arma el grafo de dependencias compartido por los binarios (api, worker, seed).
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/Inventario-medico/internal/application/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/pdf"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-medico/internal/infrastructure/telemetry"
	"github.com/jhoicas/Inventario-medico/pkg/config"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

// App casos de uso listos para usar.
type App struct {
	Engine        *inventory.StockEngine
	Ledger        *inventory.Ledger
	Catalog       *inventory.CatalogUseCase
	Reconcile     *inventory.ReconcileUseCase
	Stats         *inventory.StatsUseCase
	Replenishment *inventory.ReplenishmentUseCase
	Receiving     *inventory.ReceivingUseCase
	Sweeper       *inventory.StatusSweeper
}

// Build conecta el almacenamiento elegido por STORE_DRIVER y construye los casos de uso.
// El cleanup devuelto cierra el pool y vacía las trazas pendientes.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, func(), error) {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.App.Name, cfg.App.Env, cfg.Telemetry)
	if err != nil {
		return nil, nil, err
	}

	var (
		txRunner inventory.TxRunner
		itemRepo repository.InventoryItemRepository
		movRepo  repository.InventoryMovementRepository
		closeDB  = func() {}
	)
	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		txRunner, itemRepo, movRepo = store, store.Items(), store.Movements()
		log.Warn().Msg("STORE_DRIVER=memory: los datos no se persisten")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			_ = shutdownTracing(ctx)
			return nil, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				_ = shutdownTracing(ctx)
				return nil, nil, fmt.Errorf("migrar esquema: %w", err)
			}
			log.Info().Msg("esquema de inventario verificado")
		}
		txRunner = postgres.NewTxRunner(pool)
		itemRepo = postgres.NewInventoryItemRepository(pool)
		movRepo = postgres.NewInventoryMovementRepository(pool)
		closeDB = pool.Close
	}

	engine := inventory.NewStockEngine(txRunner, inventory.EngineConfig{
		MovementTimeout: cfg.Inventory.MovementTimeout,
		ConflictRetries: cfg.Inventory.ConflictRetries,
		StorageRetries:  cfg.Inventory.StorageRetries,
		RetryBaseDelay:  cfg.Inventory.RetryBaseDelay,
	}, log)

	app := &App{
		Engine:        engine,
		Ledger:        inventory.NewLedger(movRepo, 0),
		Catalog:       inventory.NewCatalogUseCase(txRunner, itemRepo, engine),
		Reconcile:     inventory.NewReconcileUseCase(txRunner, itemRepo, cfg.Worker.ReconcileRate, log),
		Stats:         inventory.NewStatsUseCase(itemRepo),
		Replenishment: inventory.NewReplenishmentUseCase(itemRepo).
			WithReportGenerator(pdf.NewMarotoReportGenerator(cfg.App.Name)),
		Receiving: inventory.NewReceivingUseCase(txRunner, itemRepo, engine, inventory.ReceivingConfig{
			LineTimeout:  cfg.Inventory.LineTimeout,
			BatchTimeout: cfg.Inventory.BatchTimeout,
		}, log),
		Sweeper: inventory.NewStatusSweeper(engine, itemRepo, log),
	}

	cleanup := func() {
		closeDB()
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("cerrar exportador de trazas")
		}
	}
	return app, cleanup, nil
}
