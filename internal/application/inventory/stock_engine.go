package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/inventory"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

// EngineConfig límites del motor: timeout por movimiento y reintentos acotados.
type EngineConfig struct {
	MovementTimeout time.Duration
	ConflictRetries int
	StorageRetries  int
	RetryBaseDelay  time.Duration
}

// DefaultEngineConfig valores por defecto de producción.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MovementTimeout: 5 * time.Second,
		ConflictRetries: 3,
		StorageRetries:  4,
		RetryBaseDelay:  50 * time.Millisecond,
	}
}

// MovementCommand solicitud de movimiento de stock.
// IdempotencyKey la genera el llamador por movimiento lógico (ej. "receta X, línea Y").
type MovementCommand struct {
	ItemID         string
	Kind           entity.MovementKind
	Quantity       int64
	Reference      entity.Reference
	IdempotencyKey string
	Note           string
	UserID         string
}

func (c MovementCommand) validate() error {
	if c.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if c.ItemID == "" || !c.Kind.Valid() {
		return domain.ErrInvalidInput
	}
	return nil
}

func (c MovementCommand) logFields(e *zerolog.Event) *zerolog.Event {
	return e.Str("item_id", c.ItemID).
		Str("kind", string(c.Kind)).
		Int64("quantity", c.Quantity).
		Str("reference_kind", string(c.Reference.Kind)).
		Str("reference_id", c.Reference.ID).
		Str("idempotency_key", c.IdempotencyKey).
		Str("user_id", c.UserID)
}

// StockEngine único punto de escritura de saldo y estado de los artículos.
// Cada movimiento bloquea la fila del artículo (SELECT FOR UPDATE), valida, agrega la entrada
// al libro mayor y actualiza el saldo con CAS por versión, todo en una sola transacción.
// Artículos distintos no comparten ningún bloqueo.
type StockEngine struct {
	txRunner TxRunner
	cfg      EngineConfig
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStockEngine construye el motor.
func NewStockEngine(txRunner TxRunner, cfg EngineConfig, log *logger.Logger) *StockEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &StockEngine{
		txRunner: txRunner,
		cfg:      cfg,
		log:      log.Component("stock_engine"),
		tracer:   otel.Tracer("inventario-medico/inventory"),
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (tests y barridos con fecha fija).
func (e *StockEngine) WithClock(now func() time.Time) *StockEngine {
	e.now = now
	return e
}

// ApplyMovement aplica un movimiento de forma atómica y devuelve la entrada del libro mayor.
// Las claves con prefijo reservado (entity.IsReservedIdempotencyKey) se rechazan con ErrInvalidInput.
//
// Errores de negocio (ErrInvalidQuantity, ErrItemNotFound, *InsufficientStockError,
// ErrIdempotencyMismatch) se devuelven tal cual, sin reintentos. ErrConflict y
// ErrStorageUnavailable se reintentan con backoff hasta los límites configurados.
// Si la clave de idempotencia ya fue aplicada, devuelve la entrada original sin repetir el efecto.
// Ante un timeout el llamador no debe asumir que el movimiento no se aplicó: debe reintentar
// con la misma clave.
func (e *StockEngine) ApplyMovement(ctx context.Context, cmd MovementCommand) (*entity.InventoryMovement, error) {
	if entity.IsReservedIdempotencyKey(cmd.IdempotencyKey) {
		return nil, fmt.Errorf("clave de idempotencia %q reservada: %w", cmd.IdempotencyKey, domain.ErrInvalidInput)
	}
	return e.apply(ctx, cmd)
}

// ApplyOpeningBalance registra el saldo de apertura de un artículo recién cargado.
// La clave se deriva del SKU, así que repetir la carga no duplica el saldo.
func (e *StockEngine) ApplyOpeningBalance(ctx context.Context, itemID, sku string, quantity int64, userID string) (*entity.InventoryMovement, error) {
	return e.apply(ctx, MovementCommand{
		ItemID:         itemID,
		Kind:           entity.MovementInboundPurchase,
		Quantity:       quantity,
		Reference:      entity.Reference{Kind: entity.ReferenceManual, ID: "saldo-apertura"},
		IdempotencyKey: OpeningBalanceKey(sku),
		Note:           "saldo de apertura",
		UserID:         userID,
	})
}

// OpeningBalanceKey clave de idempotencia del saldo de apertura de un SKU.
func OpeningBalanceKey(sku string) string {
	return entity.KeyPrefixOpeningBalance + sku
}

func (e *StockEngine) apply(ctx context.Context, cmd MovementCommand) (*entity.InventoryMovement, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.MovementTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "inventory.apply_movement", trace.WithAttributes(
		attribute.String("item.id", cmd.ItemID),
		attribute.String("movement.kind", string(cmd.Kind)),
		attribute.Int64("movement.quantity", cmd.Quantity),
	))
	defer span.End()

	var (
		mov      *entity.InventoryMovement
		replayed bool
	)
	err := e.retry(ctx, cmd.logFields, func(ctx context.Context) error {
		return e.txRunner.Run(ctx, func(
			ctx context.Context,
			movRepo repository.InventoryMovementRepository,
			itemRepo repository.InventoryItemRepository,
			_ repository.PurchaseOrderRepository,
		) error {
			var err error
			mov, replayed, err = e.applyInTx(ctx, movRepo, itemRepo, cmd, e.now())
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("movement.id", mov.ID), attribute.Bool("movement.replayed", replayed))
	cmd.logFields(e.log.Debug()).
		Int64("movement_id", mov.ID).
		Bool("replayed", replayed).
		Msg("movimiento aplicado")
	return mov, nil
}

// applyInTx pasos 1–6 del movimiento sobre repositorios ya atados a una transacción.
// Lo reutiliza la recepción de órdenes para aplicar varias líneas en la misma transacción.
func (e *StockEngine) applyInTx(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	itemRepo repository.InventoryItemRepository,
	cmd MovementCommand,
	now time.Time,
) (*entity.InventoryMovement, bool, error) {
	// Bloquea la fila del artículo: ningún otro movimiento del mismo artículo lee un saldo viejo
	item, err := itemRepo.GetForUpdate(ctx, cmd.ItemID)
	if err != nil {
		return nil, false, err
	}
	if item == nil {
		return nil, false, domain.ErrItemNotFound
	}

	// Reintento de un movimiento que ya se aplicó: devolver la entrada original,
	// aunque el artículo se haya retirado después
	if cmd.IdempotencyKey != "" {
		prev, err := movRepo.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if prev != nil {
			if !prev.SameIntent(cmd.ItemID, cmd.Kind, cmd.Quantity) {
				return nil, false, domain.ErrIdempotencyMismatch
			}
			return prev, true, nil
		}
	}
	if item.IsRetired() {
		return nil, false, domain.ErrItemNotFound
	}

	newQty := item.QuantityOnHand + cmd.Kind.Sign()*cmd.Quantity
	if newQty < 0 {
		return nil, false, &domain.InsufficientStockError{
			ItemID:    item.ID,
			Available: item.QuantityOnHand,
			Requested: cmd.Quantity,
		}
	}
	status := inventory.DeriveStatus(newQty, item.ReorderThreshold, item.ExpiryDate, now)

	mov := &entity.InventoryMovement{
		ItemID:         item.ID,
		Kind:           cmd.Kind,
		Quantity:       cmd.Quantity,
		ReferenceKind:  cmd.Reference.Kind,
		ReferenceID:    cmd.Reference.ID,
		IdempotencyKey: cmd.IdempotencyKey,
		Note:           cmd.Note,
		CreatedBy:      cmd.UserID,
		OccurredAt:     now,
	}
	id, err := movRepo.Append(ctx, mov)
	if err != nil {
		return nil, false, err
	}
	mov.ID = id

	if err := itemRepo.UpdateStock(ctx, item.ID, item.Version, newQty, status); err != nil {
		return nil, false, err
	}
	return mov, false, nil
}

// RefreshStatus recalcula el estado guardado de un artículo con la regla compartida
// (caducidad o cambio de umbral). No toca el saldo ni escribe en el libro mayor.
// Devuelve true si el estado cambió.
func (e *StockEngine) RefreshStatus(ctx context.Context, itemID string) (bool, error) {
	var changed bool
	err := e.retry(ctx, func(ev *zerolog.Event) *zerolog.Event { return ev.Str("item_id", itemID) }, func(ctx context.Context) error {
		return e.txRunner.Run(ctx, func(
			ctx context.Context,
			_ repository.InventoryMovementRepository,
			itemRepo repository.InventoryItemRepository,
			_ repository.PurchaseOrderRepository,
		) error {
			var err error
			changed, err = e.refreshInTx(ctx, itemRepo, itemID, e.now())
			return err
		})
	})
	return changed, err
}

func (e *StockEngine) refreshInTx(ctx context.Context, itemRepo repository.InventoryItemRepository, itemID string, now time.Time) (bool, error) {
	item, err := itemRepo.GetForUpdate(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, domain.ErrItemNotFound
	}
	status := inventory.DeriveStatus(item.QuantityOnHand, item.ReorderThreshold, item.ExpiryDate, now)
	if status == item.Status {
		return false, nil
	}
	if err := itemRepo.UpdateStatus(ctx, item.ID, item.Version, status); err != nil {
		return false, err
	}
	return true, nil
}

type logFieldsFunc func(*zerolog.Event) *zerolog.Event

// retry ejecuta op reintentando ErrConflict y ErrStorageUnavailable con backoff exponencial,
// cada uno con su propio límite. Cualquier otro error es permanente.
// Al agotar los reintentos de almacenamiento registra la intención completa para reproceso manual.
func (e *StockEngine) retry(ctx context.Context, fields logFieldsFunc, op func(ctx context.Context) error) error {
	var conflicts, failures int

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryBaseDelay
	b.MaxInterval = 20 * e.cfg.RetryBaseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op(ctx)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			return struct{}{}, backoff.Permanent(err)
		case domain.IsBusinessError(err):
			return struct{}{}, backoff.Permanent(err)
		case errors.Is(err, domain.ErrConflict):
			conflicts++
			if conflicts > e.cfg.ConflictRetries {
				return struct{}{}, backoff.Permanent(err)
			}
			fields(e.log.Warn()).Err(err).Int("attempt", conflicts).Msg("conflicto de concurrencia, reintentando")
			return struct{}{}, err
		case errors.Is(err, domain.ErrStorageUnavailable):
			failures++
			if failures > e.cfg.StorageRetries {
				return struct{}{}, backoff.Permanent(err)
			}
			fields(e.log.Warn()).Err(err).Int("attempt", failures).Msg("almacenamiento no disponible, reintentando")
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(e.cfg.ConflictRetries+e.cfg.StorageRetries+1)))

	switch {
	case err == nil, domain.IsBusinessError(err):
	case errors.Is(err, domain.ErrStorageUnavailable):
		fields(e.log.Error()).Err(err).Msg("movimiento no aplicado: reintentos de almacenamiento agotados, reprocesar manualmente")
	case errors.Is(err, context.DeadlineExceeded):
		fields(e.log.Error()).Err(err).Msg("timeout: resultado incierto, reintentar con la misma clave de idempotencia")
	default:
		fields(e.log.Warn()).Err(err).Msg("movimiento rechazado")
	}
	return err
}
