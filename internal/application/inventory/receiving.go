package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-medico/internal/domain"
	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
	"github.com/jhoicas/Inventario-medico/internal/domain/repository"
	"github.com/jhoicas/Inventario-medico/pkg/logger"
)

// ReceivingConfig timeouts independientes: por línea y para el lote completo.
type ReceivingConfig struct {
	LineTimeout  time.Duration
	BatchTimeout time.Duration
}

// DefaultReceivingConfig valores por defecto.
func DefaultReceivingConfig() ReceivingConfig {
	return ReceivingConfig{LineTimeout: 5 * time.Second, BatchTimeout: 30 * time.Second}
}

// ReceiptLine línea recibida del proveedor.
type ReceiptLine struct {
	ItemID   string
	Quantity int64
}

// ReceiptCommand confirmación de entrega de una orden de compra.
type ReceiptCommand struct {
	OrderID string
	Lines   []ReceiptLine
	UserID  string
	Note    string
}

// LineResult movimiento generado por una línea (Line empieza en 1).
type LineResult struct {
	Line       int
	ItemID     string
	Quantity   int64
	MovementID int64
}

// ReceiptResult resultado de una recepción completa.
type ReceiptResult struct {
	OrderID    string
	Lines      []LineResult
	ReceivedAt time.Time
}

// LineFailure línea rechazada y su causa.
type LineFailure struct {
	Line     int
	ItemID   string
	Quantity int64
	Err      error
}

// ReceiptError la recepción se abortó completa; Failed lista las líneas que la hicieron fallar.
// Ninguna línea quedó aplicada.
type ReceiptError struct {
	OrderID string
	Failed  []LineFailure
}

func (e *ReceiptError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("línea %d (%s): %v", f.Line, f.ItemID, f.Err))
	}
	return fmt.Sprintf("recepción de la orden %s abortada: %s", e.OrderID, strings.Join(parts, "; "))
}

// Unwrap expone las causas para errors.Is / errors.As.
func (e *ReceiptError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// ReceivingUseCase traduce la confirmación de un proveedor a movimientos inbound_purchase.
//
// Política de fallos: se aborta el lote completo. Todas las líneas se validan antes de escribir
// y se aplican en una sola transacción; si cualquier línea falla no queda ningún movimiento
// y la orden sigue pendiente. Repetir la misma recepción devuelve el resultado original;
// cualquier otra recepción sobre una orden completed es ErrOrderAlreadyReceived.
type ReceivingUseCase struct {
	txRunner TxRunner
	itemRepo repository.InventoryItemRepository
	engine   *StockEngine
	cfg      ReceivingConfig
	log      *logger.Logger
}

// NewReceivingUseCase construye el caso de uso.
func NewReceivingUseCase(
	txRunner TxRunner,
	itemRepo repository.InventoryItemRepository,
	engine *StockEngine,
	cfg ReceivingConfig,
	log *logger.Logger,
) *ReceivingUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReceivingUseCase{
		txRunner: txRunner,
		itemRepo: itemRepo,
		engine:   engine,
		cfg:      cfg,
		log:      log.Component("receiving"),
	}
}

// CreateOrder registra una orden de compra pendiente.
func (uc *ReceivingUseCase) CreateOrder(ctx context.Context, supplier, note string) (*entity.PurchaseOrder, error) {
	if strings.TrimSpace(supplier) == "" {
		return nil, domain.ErrInvalidInput
	}
	order := &entity.PurchaseOrder{
		ID:        uuid.New().String(),
		Supplier:  strings.TrimSpace(supplier),
		Status:    entity.PurchaseOrderPending,
		Note:      note,
		CreatedAt: uc.engine.now(),
	}
	err := uc.txRunner.Run(ctx, func(
		ctx context.Context,
		_ repository.InventoryMovementRepository,
		_ repository.InventoryItemRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error {
		return orderRepo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder devuelve la orden o ErrNotFound.
func (uc *ReceivingUseCase) GetOrder(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var order *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(
		ctx context.Context,
		_ repository.InventoryMovementRepository,
		_ repository.InventoryItemRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error {
		var err error
		order, err = orderRepo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// Receive aplica todas las líneas o ninguna y marca la orden como completed.
func (uc *ReceivingUseCase) Receive(ctx context.Context, cmd ReceiptCommand) (*ReceiptResult, error) {
	if cmd.OrderID == "" || len(cmd.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.BatchTimeout)
	defer cancel()

	// Chequeo previo sin bloqueo; receiveInTx lo repite con la fila de la orden bloqueada
	order, err := uc.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsReceived() {
		if err := uc.validateLines(ctx, cmd); err != nil {
			return nil, err
		}
	}

	fields := func(e *zerolog.Event) *zerolog.Event {
		return e.Str("order_id", cmd.OrderID).Int("lines", len(cmd.Lines)).Str("user_id", cmd.UserID)
	}

	var result *ReceiptResult
	err = uc.engine.retry(ctx, fields, func(ctx context.Context) error {
		return uc.txRunner.Run(ctx, func(
			ctx context.Context,
			movRepo repository.InventoryMovementRepository,
			itemRepo repository.InventoryItemRepository,
			orderRepo repository.PurchaseOrderRepository,
		) error {
			var err error
			result, err = uc.receiveInTx(ctx, movRepo, itemRepo, orderRepo, cmd)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	fields(uc.log.Info()).Msg("orden de compra recibida")
	return result, nil
}

// validateLines rechaza el lote completo antes de escribir, reportando cada línea inválida.
func (uc *ReceivingUseCase) validateLines(ctx context.Context, cmd ReceiptCommand) error {
	var failed []LineFailure
	for i, line := range cmd.Lines {
		fail := func(err error) {
			failed = append(failed, LineFailure{Line: i + 1, ItemID: line.ItemID, Quantity: line.Quantity, Err: err})
		}
		if line.ItemID == "" {
			fail(domain.ErrInvalidInput)
			continue
		}
		if line.Quantity <= 0 {
			fail(domain.ErrInvalidQuantity)
			continue
		}
		item, err := uc.itemRepo.Get(ctx, line.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.IsRetired() {
			fail(domain.ErrItemNotFound)
		}
	}
	if len(failed) > 0 {
		return &ReceiptError{OrderID: cmd.OrderID, Failed: failed}
	}
	return nil
}

func (uc *ReceivingUseCase) receiveInTx(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	itemRepo repository.InventoryItemRepository,
	orderRepo repository.PurchaseOrderRepository,
	cmd ReceiptCommand,
) (*ReceiptResult, error) {
	order, err := orderRepo.GetForUpdate(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if order.IsReceived() {
		return uc.replayReceipt(ctx, movRepo, order, cmd)
	}

	// Bloquear los artículos en orden de ID evita interbloqueos entre recepciones concurrentes
	ids := make([]string, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		ids = append(ids, line.ItemID)
	}
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if _, err := itemRepo.GetForUpdate(ctx, id); err != nil {
			return nil, err
		}
	}

	now := uc.engine.now()
	result := &ReceiptResult{OrderID: order.ID, Lines: make([]LineResult, 0, len(cmd.Lines)), ReceivedAt: now}
	for i, line := range cmd.Lines {
		mov, err := uc.applyLine(ctx, movRepo, itemRepo, cmd, i, line, now)
		if err != nil {
			return nil, &ReceiptError{
				OrderID: cmd.OrderID,
				Failed:  []LineFailure{{Line: i + 1, ItemID: line.ItemID, Quantity: line.Quantity, Err: err}},
			}
		}
		result.Lines = append(result.Lines, LineResult{
			Line:       i + 1,
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			MovementID: mov.ID,
		})
	}

	if err := orderRepo.MarkCompleted(ctx, order.ID, now); err != nil {
		return nil, err
	}
	return result, nil
}

// replayReceipt reintento de una recepción ya aplicada (por ejemplo, tras perder la respuesta
// del commit): si cada línea coincide con el movimiento guardado bajo su clave se devuelve el
// resultado original; cualquier diferencia es ErrOrderAlreadyReceived.
func (uc *ReceivingUseCase) replayReceipt(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	order *entity.PurchaseOrder,
	cmd ReceiptCommand,
) (*ReceiptResult, error) {
	result := &ReceiptResult{OrderID: order.ID, Lines: make([]LineResult, 0, len(cmd.Lines))}
	if order.ReceivedAt != nil {
		result.ReceivedAt = *order.ReceivedAt
	}
	for i, line := range cmd.Lines {
		prev, err := movRepo.GetByIdempotencyKey(ctx, LineIdempotencyKey(order.ID, i+1))
		if err != nil {
			return nil, err
		}
		if prev == nil || !prev.SameIntent(line.ItemID, entity.MovementInboundPurchase, line.Quantity) {
			return nil, domain.ErrOrderAlreadyReceived
		}
		result.Lines = append(result.Lines, LineResult{Line: i + 1, ItemID: line.ItemID, Quantity: line.Quantity, MovementID: prev.ID})
	}
	// Una recepción con más líneas que la solicitud actual tampoco es el mismo lote
	extra, err := movRepo.GetByIdempotencyKey(ctx, LineIdempotencyKey(order.ID, len(cmd.Lines)+1))
	if err != nil {
		return nil, err
	}
	if extra != nil {
		return nil, domain.ErrOrderAlreadyReceived
	}
	return result, nil
}

// applyLine aplica una línea con su propio timeout, independiente del timeout del lote.
func (uc *ReceivingUseCase) applyLine(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	itemRepo repository.InventoryItemRepository,
	cmd ReceiptCommand,
	idx int,
	line ReceiptLine,
	now time.Time,
) (*entity.InventoryMovement, error) {
	lineCtx, cancel := context.WithTimeout(ctx, uc.cfg.LineTimeout)
	defer cancel()

	mov, _, err := uc.engine.applyInTx(lineCtx, movRepo, itemRepo, MovementCommand{
		ItemID:         line.ItemID,
		Kind:           entity.MovementInboundPurchase,
		Quantity:       line.Quantity,
		Reference:      entity.Reference{Kind: entity.ReferencePurchaseOrder, ID: cmd.OrderID},
		IdempotencyKey: LineIdempotencyKey(cmd.OrderID, idx+1),
		Note:           cmd.Note,
		UserID:         cmd.UserID,
	}, now)
	if err == nil {
		return mov, nil
	}
	if errors.Is(lineCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("timeout de línea: %w", err)
	}
	return nil, err
}

// LineIdempotencyKey clave de idempotencia de la línea n (desde 1) de una orden.
func LineIdempotencyKey(orderID string, line int) string {
	return fmt.Sprintf("%s%s:%d", entity.KeyPrefixPurchaseOrder, orderID, line)
}
