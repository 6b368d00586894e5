package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

const tracerName = "github.com/jhoicas/stock-ledger-api/internal/application/inventory"

// MutatorConfig parámetros del StockMutator.
type MutatorConfig struct {
	MaxConflictRetries int // reintentos ante ErrConcurrencyConflict (serialización o deadlock)
}

// StockMutator es el único camino para cambiar una StockRecord. Cada mutación bloquea la fila
// (SELECT FOR UPDATE), calcula stock_before/stock_after, rechaza saldos negativos y agrega
// exactamente un MovementEntry en la misma transacción.
type StockMutator struct {
	txRunner   TxRunner
	alerts     *AlertDispatcher
	log        zerolog.Logger
	tracer     trace.Tracer
	maxRetries int
	now        func() time.Time
}

// NewStockMutator construye el mutador.
func NewStockMutator(txRunner TxRunner, alerts *AlertDispatcher, log zerolog.Logger, cfg MutatorConfig) *StockMutator {
	retries := cfg.MaxConflictRetries
	if retries < 0 {
		retries = 0
	}
	return &StockMutator{
		txRunner:   txRunner,
		alerts:     alerts,
		log:        log,
		tracer:     otel.Tracer(tracerName),
		maxRetries: retries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// MutationInput entrada de stock.mutate.
type MutationInput struct {
	VariantID     string
	WarehouseID   string
	Delta         int64
	Cause         entity.MovementCause
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Note          string
	UnitCost      *decimal.Decimal // solo entradas: recalcula el costo promedio ponderado
}

// MutationResult movimiento creado y estado de la fila tras la mutación.
// LowStock es una advertencia, nunca un error.
type MutationResult struct {
	Entry    *entity.MovementEntry
	Record   *entity.StockRecord
	LowStock bool
}

// ValidateMutation revisa la forma de la entrada antes de abrir la transacción.
func ValidateMutation(in MutationInput) error {
	if err := validateID("variant_id", in.VariantID); err != nil {
		return err
	}
	if err := validateID("warehouse_id", in.WarehouseID); err != nil {
		return err
	}
	if in.Delta == 0 {
		return domain.NewValidationError("delta", "debe ser distinto de cero")
	}
	if in.Delta == math.MinInt64 {
		return domain.NewValidationError("delta", "fuera de rango")
	}
	if !in.Cause.Valid() {
		return domain.NewValidationError("cause", fmt.Sprintf("causa desconocida %q", in.Cause))
	}
	if !in.Cause.AllowsDelta(in.Delta) {
		return domain.NewValidationError("delta", fmt.Sprintf("signo no permitido para la causa %q", in.Cause))
	}
	if in.UnitCost != nil && (in.Delta < 0 || in.UnitCost.IsNegative()) {
		return domain.NewValidationError("unit_cost", "solo aplica a entradas y no puede ser negativo")
	}
	return nil
}

func validateID(field, id string) error {
	if id == "" {
		return domain.NewValidationError(field, "es requerido")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError(field, "debe ser un UUID")
	}
	return nil
}

// Mutate aplica la mutación en su propia transacción, reintentando conflictos de forma acotada.
func (m *StockMutator) Mutate(ctx context.Context, in MutationInput) (*MutationResult, error) {
	ctx, span := m.tracer.Start(ctx, "stock.mutate", trace.WithAttributes(
		attribute.String("stock.variant_id", in.VariantID),
		attribute.String("stock.warehouse_id", in.WarehouseID),
		attribute.Int64("stock.delta", in.Delta),
		attribute.String("stock.cause", string(in.Cause)),
	))
	defer span.End()

	if err := ValidateMutation(in); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var res *MutationResult
	err := m.withConflictRetry(ctx, func() error {
		return m.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository) error {
			r, err := m.MutateInTx(ctx, stockRepo, movRepo, in)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logFailure(err, in)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("stock.movement_id", res.Entry.ID), attribute.Bool("stock.low_stock", res.LowStock))
	m.log.Info().
		Int64("movement_id", res.Entry.ID).
		Str("variant_id", in.VariantID).
		Str("warehouse_id", in.WarehouseID).
		Int64("delta", in.Delta).
		Int64("stock_after", res.Entry.StockAfter).
		Str("cause", string(in.Cause)).
		Str("actor_id", in.ActorID).
		Msg("movimiento de stock registrado")
	m.NotifyLowStock(ctx, res)
	return res, nil
}

// MutateInTx ejecuta la mutación con los repositorios del caller (misma transacción).
// Si retorna error (ej: InsufficientStockError), el caller debe hacer rollback.
// No envía alertas: el caller llama NotifyLowStock después del commit.
func (m *StockMutator) MutateInTx(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
	in MutationInput,
) (*MutationResult, error) {
	if err := ValidateMutation(in); err != nil {
		return nil, err
	}

	// Bloquea la fila: ninguna otra mutación de la pareja lee stock_before hasta el commit.
	rec, err := stockRepo.GetForUpdate(ctx, in.VariantID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("stock de variante %s en bodega %s: %w", in.VariantID, in.WarehouseID, domain.ErrNotFound)
	}

	before := rec.Quantity
	if in.Delta > 0 && before > math.MaxInt64-in.Delta {
		return nil, domain.NewValidationError("delta", "la cantidad resultante excede el máximo permitido")
	}
	after := before + in.Delta
	if in.Delta < 0 && after < rec.ReservedQuantity {
		return nil, &domain.InsufficientStockError{
			VariantID:   in.VariantID,
			WarehouseID: in.WarehouseID,
			Requested:   -in.Delta,
			Available:   rec.Available(),
		}
	}

	if in.Delta > 0 && in.UnitCost != nil {
		rec.AverageCostPrice = domaininv.CostCalculator(before, rec.AverageCostPrice, in.Delta, *in.UnitCost)
	}
	now := m.now()
	rec.Quantity = after
	rec.Version++
	rec.UpdatedAt = now
	if err := stockRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	entry := &entity.MovementEntry{
		VariantID:     in.VariantID,
		WarehouseID:   in.WarehouseID,
		Delta:         in.Delta,
		StockBefore:   before,
		StockAfter:    after,
		Cause:         in.Cause,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		ActorID:       in.ActorID,
		Note:          in.Note,
		CreatedAt:     now,
	}
	if err := movRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return &MutationResult{Entry: entry, Record: rec, LowStock: rec.IsLowStock()}, nil
}

// NotifyLowStock envía una alerta por cada resultado que quedó en o bajo el mínimo.
func (m *StockMutator) NotifyLowStock(ctx context.Context, results ...*MutationResult) {
	for _, r := range results {
		if r == nil || !r.LowStock || r.Entry == nil {
			continue
		}
		m.log.Warn().
			Str("variant_id", r.Record.VariantID).
			Str("warehouse_id", r.Record.WarehouseID).
			Int64("quantity", r.Record.Quantity).
			Int64("minimum_stock", r.Record.MinimumStock).
			Msg("stock bajo")
		m.alerts.Dispatch(ctx, entity.Alert{
			Type:         entity.AlertLowStock,
			VariantID:    r.Record.VariantID,
			WarehouseID:  r.Record.WarehouseID,
			Quantity:     r.Record.Quantity,
			MinimumStock: r.Record.MinimumStock,
			MovementID:   r.Entry.ID,
			OccurredAt:   r.Entry.CreatedAt,
		})
	}
}

// InitializeInput creación de la StockRecord de una variante en una bodega.
type InitializeInput struct {
	VariantID     string
	WarehouseID   string
	Quantity      int64 // stock inicial; > 0 genera un movimiento initial_stock
	MinimumStock  int64
	UnitCost      *decimal.Decimal
	ReferenceType string
	ReferenceID   string
	ActorID       string
}

// InitializeStock crea la fila (una sola vez por pareja) y registra el stock inicial.
// Si la fila ya existe retorna domain.ErrDuplicate sin tocar nada.
func (m *StockMutator) InitializeStock(ctx context.Context, in InitializeInput) (*MutationResult, error) {
	if err := validateID("variant_id", in.VariantID); err != nil {
		return nil, err
	}
	if err := validateID("warehouse_id", in.WarehouseID); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, domain.NewValidationError("quantity", "no puede ser negativa")
	}
	if in.MinimumStock < 0 {
		return nil, domain.NewValidationError("minimum_stock", "no puede ser negativo")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.NewValidationError("unit_cost", "no puede ser negativo")
	}
	refType := in.ReferenceType
	if refType == "" {
		refType = entity.ReferenceManual
	}

	var res *MutationResult
	err := m.withConflictRetry(ctx, func() error {
		return m.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository) error {
			now := m.now()
			rec := &entity.StockRecord{
				VariantID:        in.VariantID,
				WarehouseID:      in.WarehouseID,
				MinimumStock:     in.MinimumStock,
				AverageCostPrice: decimal.Zero,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			created, err := stockRepo.Create(ctx, rec)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("stock de variante %s en bodega %s: %w", in.VariantID, in.WarehouseID, domain.ErrDuplicate)
			}
			if in.Quantity == 0 {
				res = &MutationResult{Record: rec, LowStock: rec.IsLowStock()}
				return nil
			}
			r, err := m.MutateInTx(ctx, stockRepo, movRepo, MutationInput{
				VariantID:     in.VariantID,
				WarehouseID:   in.WarehouseID,
				Delta:         in.Quantity,
				Cause:         entity.CauseInitialStock,
				ReferenceType: refType,
				ReferenceID:   in.ReferenceID,
				ActorID:       in.ActorID,
				UnitCost:      in.UnitCost,
			})
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	m.log.Info().
		Str("variant_id", in.VariantID).
		Str("warehouse_id", in.WarehouseID).
		Int64("quantity", in.Quantity).
		Msg("stock inicializado")
	m.NotifyLowStock(ctx, res)
	return res, nil
}

// SetMinimumStock cambia el umbral de stock bajo. No altera la cantidad, por eso no genera movimiento.
func (m *StockMutator) SetMinimumStock(ctx context.Context, variantID, warehouseID string, minimum int64) (*entity.StockRecord, error) {
	if err := validateID("variant_id", variantID); err != nil {
		return nil, err
	}
	if err := validateID("warehouse_id", warehouseID); err != nil {
		return nil, err
	}
	if minimum < 0 {
		return nil, domain.NewValidationError("minimum_stock", "no puede ser negativo")
	}
	var out *entity.StockRecord
	err := m.withConflictRetry(ctx, func() error {
		return m.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, _ repository.MovementRepository) error {
			rec, err := stockRepo.GetForUpdate(ctx, variantID, warehouseID)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("stock de variante %s en bodega %s: %w", variantID, warehouseID, domain.ErrNotFound)
			}
			rec.MinimumStock = minimum
			rec.Version++
			rec.UpdatedAt = m.now()
			if err := stockRepo.Update(ctx, rec); err != nil {
				return err
			}
			out = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withConflictRetry repite fn mientras falle por ErrConcurrencyConflict, hasta maxRetries veces.
func (m *StockMutator) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= m.maxRetries {
			return err
		}
		m.log.Warn().Err(err).Int("attempt", attempt+1).Msg("conflicto de concurrencia, reintentando mutación")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrTransientStore, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
}

func (m *StockMutator) logFailure(err error, in MutationInput) {
	ev := m.log.Warn()
	if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrNotFound) {
		ev = m.log.Error()
	}
	ev.Err(err).
		Str("variant_id", in.VariantID).
		Str("warehouse_id", in.WarehouseID).
		Int64("delta", in.Delta).
		Str("cause", string(in.Cause)).
		Msg("mutación de stock rechazada")
}
