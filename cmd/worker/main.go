// worker ejecuta las tareas periódicas del inventario: barrido de estados (caducidad) y
// conciliación completa del catálogo contra el libro mayor.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/Inventario-medico/internal/bootstrap"
	"github.com/jhoicas/Inventario-medico/pkg/config"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer cleanup()

	log.Info().
		Dur("sweep_interval", cfg.Worker.SweepInterval).
		Dur("reconcile_interval", cfg.Worker.ReconcileInterval).
		Msg("worker iniciado")

	sweep := func() {
		if _, err := deps.Sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("barrido de estados")
		}
	}
	reconcile := func() {
		mismatches, err := deps.Reconcile.ReconcileAll(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("conciliación")
			return
		}
		if len(mismatches) > 0 {
			log.Error().Int("mismatches", len(mismatches)).Msg("ALERTA: artículos con saldo distinto al libro mayor")
		}
	}

	// Primera pasada al arrancar: un despliegue después de medianoche no espera al siguiente tick
	sweep()

	sweepTicker := time.NewTicker(cfg.Worker.SweepInterval)
	defer sweepTicker.Stop()
	reconcileTicker := time.NewTicker(cfg.Worker.ReconcileInterval)
	defer reconcileTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker detenido")
			return
		case <-sweepTicker.C:
			sweep()
		case <-reconcileTicker.C:
			reconcile()
		}
	}
}
