package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

const tracerName = "github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"

// Config límites de la transacción de pedido.
type Config struct {
	TxTimeout    time.Duration // cota de la transacción completa (bloqueos + commit)
	MaxTxRetries int           // reintentos de la transacción completa ante ErrConcurrencyConflict
}

// PlaceOrderLine línea solicitada por el cliente.
type PlaceOrderLine struct {
	VariantID   string
	WarehouseID string
	Quantity    int64
	Price       decimal.Decimal
}

// PlaceOrderInput entrada de PlaceOrder.
type PlaceOrderInput struct {
	CustomerRef string
	Lines       []PlaceOrderLine
}

// Coordinator crea y cancela pedidos descontando o devolviendo stock en una sola transacción.
// Un pedido nunca queda persistido con parte de sus líneas descontadas.
type Coordinator struct {
	txRunner OrderTxRunner
	mutator  StockMutator
	catalog  repository.CatalogLookup
	log      zerolog.Logger
	tracer   trace.Tracer
	cfg      Config
	now      func() time.Time
}

// NewCoordinator construye el coordinador. catalog puede ser nil (sin validación de catálogo).
func NewCoordinator(txRunner OrderTxRunner, mutator StockMutator, catalog repository.CatalogLookup, log zerolog.Logger, cfg Config) *Coordinator {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 10 * time.Second
	}
	if cfg.MaxTxRetries < 0 {
		cfg.MaxTxRetries = 0
	}
	return &Coordinator{
		txRunner: txRunner,
		mutator:  mutator,
		catalog:  catalog,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder valida el carrito, descuenta el stock de todas las líneas y guarda el pedido en estado pending.
// Si cualquier línea falla no queda ningún movimiento ni pedido.
func (c *Coordinator) PlaceOrder(ctx context.Context, actorID string, in PlaceOrderInput) (*entity.Order, error) {
	ctx, span := c.tracer.Start(ctx, "order.place", trace.WithAttributes(
		attribute.Int("order.lines", len(in.Lines)),
		attribute.String("order.actor_id", actorID),
	))
	defer span.End()

	if err := c.validatePlaceOrder(ctx, in); err != nil {
		c.fail(span, err)
		return nil, err
	}

	var (
		order   *entity.Order
		results []*inventory.MutationResult
	)
	err := c.runWithRetry(ctx, "order.place", func(tctx context.Context) error {
		o, res, err := c.placeInTx(tctx, actorID, in)
		if err != nil {
			return err
		}
		order, results = o, res
		return nil
	})
	if err != nil {
		c.fail(span, err)
		c.log.Warn().Err(err).Str("actor_id", actorID).Int("lines", len(in.Lines)).Msg("pedido rechazado")
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", order.Total.String()))
	c.log.Info().
		Str("order_id", order.ID).
		Str("actor_id", actorID).
		Int("lines", len(order.Lines)).
		Str("total", order.Total.String()).
		Msg("pedido creado")
	c.mutator.NotifyLowStock(ctx, results...)
	return order, nil
}

func (c *Coordinator) placeInTx(ctx context.Context, actorID string, in PlaceOrderInput) (*entity.Order, []*inventory.MutationResult, error) {
	now := c.now()
	order := &entity.Order{
		ID:          uuid.New().String(),
		CustomerRef: in.CustomerRef,
		Status:      entity.OrderStatusPending,
		Total:       decimal.Zero,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, l := range in.Lines {
		sub := l.Price.Mul(decimal.NewFromInt(l.Quantity))
		order.Total = order.Total.Add(sub)
		order.Lines = append(order.Lines, &entity.OrderLine{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			LineNo:      i,
			VariantID:   l.VariantID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			UnitPrice:   l.Price,
			Subtotal:    sub,
		})
	}

	var results []*inventory.MutationResult
	err := c.txRunner.RunOrder(ctx, func(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository, orderRepo repository.OrderRepository) error {
		results = results[:0]
		for _, idx := range canonicalOrder(order.Lines) {
			l := order.Lines[idx]
			res, err := c.mutator.MutateInTx(ctx, stockRepo, movRepo, inventory.MutationInput{
				VariantID:     l.VariantID,
				WarehouseID:   l.WarehouseID,
				Delta:         -l.Quantity,
				Cause:         entity.CauseOrderFulfill,
				ReferenceType: entity.ReferenceOrder,
				ReferenceID:   order.ID,
				ActorID:       actorID,
			})
			if err != nil {
				return &domain.LineError{Line: l.LineNo, VariantID: l.VariantID, WarehouseID: l.WarehouseID, Err: err}
			}
			results = append(results, res)
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		for _, l := range order.Lines {
			if err := orderRepo.CreateLine(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, results, nil
}

// CancelOrder devuelve al stock todas las líneas y deja el pedido en cancelled.
// Cancelar un pedido ya cancelado, enviado o entregado retorna InvalidStateError sin tocar el ledger.
func (c *Coordinator) CancelOrder(ctx context.Context, actorID, orderID string) (*entity.Order, error) {
	ctx, span := c.tracer.Start(ctx, "order.cancel", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.actor_id", actorID),
	))
	defer span.End()

	if err := validateOrderID(orderID); err != nil {
		c.fail(span, err)
		return nil, err
	}

	var (
		order   *entity.Order
		results []*inventory.MutationResult
	)
	err := c.runWithRetry(ctx, "order.cancel", func(tctx context.Context) error {
		return c.txRunner.RunOrder(tctx, func(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository, orderRepo repository.OrderRepository) error {
			results = nil
			o, err := orderRepo.GetForUpdate(tctx, orderID)
			if err != nil {
				return err
			}
			if o == nil {
				return fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
			}
			if !o.Status.Cancellable() {
				return &domain.InvalidStateError{OrderID: orderID, From: string(o.Status), To: string(entity.OrderStatusCancelled)}
			}
			for _, idx := range canonicalOrder(o.Lines) {
				l := o.Lines[idx]
				res, err := c.mutator.MutateInTx(tctx, stockRepo, movRepo, inventory.MutationInput{
					VariantID:     l.VariantID,
					WarehouseID:   l.WarehouseID,
					Delta:         l.Quantity,
					Cause:         entity.CauseOrderRelease,
					ReferenceType: entity.ReferenceOrder,
					ReferenceID:   orderID,
					ActorID:       actorID,
				})
				if err != nil {
					return &domain.LineError{Line: l.LineNo, VariantID: l.VariantID, WarehouseID: l.WarehouseID, Err: err}
				}
				results = append(results, res)
			}
			now := c.now()
			if err := orderRepo.UpdateStatus(tctx, orderID, entity.OrderStatusCancelled, now); err != nil {
				return err
			}
			o.Status = entity.OrderStatusCancelled
			o.UpdatedAt = now
			order = o
			return nil
		})
	})
	if err != nil {
		c.fail(span, err)
		c.log.Warn().Err(err).Str("order_id", orderID).Str("actor_id", actorID).Msg("cancelación rechazada")
		return nil, err
	}
	c.log.Info().Str("order_id", orderID).Str("actor_id", actorID).Int("lines", len(order.Lines)).Msg("pedido cancelado")
	c.mutator.NotifyLowStock(ctx, results...)
	return order, nil
}

// AdvanceStatus mueve el pedido un paso en pending → confirmed → processing → shipped → delivered.
// No toca stock: el descuento ocurrió al crear el pedido.
func (c *Coordinator) AdvanceStatus(ctx context.Context, actorID, orderID string, target entity.OrderStatus) (*entity.Order, error) {
	ctx, span := c.tracer.Start(ctx, "order.advance_status", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(target)),
	))
	defer span.End()

	if err := validateOrderID(orderID); err != nil {
		c.fail(span, err)
		return nil, err
	}
	if !target.Valid() {
		err := domain.NewValidationError("status", fmt.Sprintf("estado desconocido %q", target))
		c.fail(span, err)
		return nil, err
	}
	if target == entity.OrderStatusCancelled {
		err := domain.NewValidationError("status", "use la cancelación del pedido")
		c.fail(span, err)
		return nil, err
	}

	var order *entity.Order
	err := c.runWithRetry(ctx, "order.advance_status", func(tctx context.Context) error {
		return c.txRunner.RunOrder(tctx, func(_ repository.StockRecordRepository, _ repository.MovementRepository, orderRepo repository.OrderRepository) error {
			o, err := orderRepo.GetForUpdate(tctx, orderID)
			if err != nil {
				return err
			}
			if o == nil {
				return fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
			}
			if !o.Status.CanAdvanceTo(target) {
				return &domain.InvalidStateError{OrderID: orderID, From: string(o.Status), To: string(target)}
			}
			now := c.now()
			if err := orderRepo.UpdateStatus(tctx, orderID, target, now); err != nil {
				return err
			}
			o.Status = target
			o.UpdatedAt = now
			order = o
			return nil
		})
	})
	if err != nil {
		c.fail(span, err)
		return nil, err
	}
	c.log.Info().Str("order_id", orderID).Str("actor_id", actorID).Str("status", string(target)).Msg("estado de pedido actualizado")
	return order, nil
}

// GetOrder devuelve el pedido con sus líneas.
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return nil, err
	}
	var order *entity.Order
	err := c.txRunner.RunOrder(ctx, func(_ repository.StockRecordRepository, _ repository.MovementRepository, orderRepo repository.OrderRepository) error {
		o, err := orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}
	return order, nil
}

func (c *Coordinator) validatePlaceOrder(ctx context.Context, in PlaceOrderInput) error {
	if len(in.Lines) == 0 {
		return domain.NewValidationError("lines", "el pedido debe tener al menos una línea")
	}
	for i, l := range in.Lines {
		if err := validateLineID(i, "variant_id", l.VariantID); err != nil {
			return err
		}
		if err := validateLineID(i, "warehouse_id", l.WarehouseID); err != nil {
			return err
		}
		if l.Quantity <= 0 {
			return &domain.ValidationError{Field: "quantity", Line: i, Reason: "debe ser mayor que cero"}
		}
		if l.Price.IsNegative() {
			return &domain.ValidationError{Field: "price", Line: i, Reason: "no puede ser negativo"}
		}
	}
	if c.catalog == nil {
		return nil
	}
	for i, l := range in.Lines {
		st, err := c.catalog.VariantExists(ctx, l.VariantID, l.WarehouseID)
		if err != nil {
			return err
		}
		if !st.Exists {
			return &domain.ValidationError{Field: "variant_id", Line: i, Reason: "la variante no existe en la bodega"}
		}
		if !st.Active {
			return &domain.ValidationError{Field: "variant_id", Line: i, Reason: "la variante está inactiva"}
		}
	}
	return nil
}

// runWithRetry ejecuta fn con la cota de tiempo de la transacción y repite solo ante conflictos.
func (c *Coordinator) runWithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := c.runBounded(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= c.cfg.MaxTxRetries {
			return err
		}
		c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("conflicto de concurrencia, reintentando transacción")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrTransientStore, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
}

func (c *Coordinator) runBounded(ctx context.Context, fn func(ctx context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()
	err := fn(tctx)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTransientStore) {
		return fmt.Errorf("%w: transacción excedió %s: %v", domain.ErrTransientStore, c.cfg.TxTimeout, err)
	}
	return err
}

func (c *Coordinator) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// canonicalOrder índices de las líneas ordenados por (variant_id, warehouse_id).
// Todas las transacciones bloquean filas en el mismo orden, así dos pedidos no se esperan en ciclo.
func canonicalOrder(lines []*entity.OrderLine) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka := entity.StockKey{VariantID: lines[idx[a]].VariantID, WarehouseID: lines[idx[a]].WarehouseID}
		kb := entity.StockKey{VariantID: lines[idx[b]].VariantID, WarehouseID: lines[idx[b]].WarehouseID}
		return ka.Less(kb)
	})
	return idx
}

func validateOrderID(id string) error {
	if id == "" {
		return domain.NewValidationError("order_id", "es requerido")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError("order_id", "debe ser un UUID")
	}
	return nil
}

func validateLineID(line int, field, id string) error {
	if id == "" {
		return &domain.ValidationError{Field: field, Line: line, Reason: "es requerido"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &domain.ValidationError{Field: field, Line: line, Reason: "debe ser un UUID"}
	}
	return nil
}
