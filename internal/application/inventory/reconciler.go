package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

const maxReconcileReads = 3

// ReconcileResult resultado de la auditoría de una pareja (variante, bodega).
type ReconcileResult struct {
	VariantID          string
	WarehouseID        string
	Consistent         bool
	RecomputedQuantity int64
	StoredQuantity     int64
	EntryCount         int64
	ChainBreaks        int64 // movimientos cuyo stock_before no enlaza con el anterior
}

// ReconcileFailure pareja que no se pudo leer durante una corrida.
type ReconcileFailure struct {
	VariantID   string
	WarehouseID string
	Err         error
}

// ReconcileAllReport resumen de una corrida completa.
type ReconcileAllReport struct {
	Checked      int
	Inconsistent []ReconcileResult
	Failed       []ReconcileFailure
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Reconciler recalcula el stock desde el ledger y reporta divergencias.
// Nunca corrige: la corrección es un manual_adjust explícito de un operador.
// No se usa en el camino de creación de pedidos.
type Reconciler struct {
	stockRepo   repository.StockRecordRepository
	movRepo     repository.MovementRepository
	alerts      *AlertDispatcher
	log         zerolog.Logger
	concurrency int
}

// NewReconciler construye el reconciliador sobre repositorios de lectura (pool, no tx).
func NewReconciler(
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
	alerts *AlertDispatcher,
	log zerolog.Logger,
	concurrency int,
) *Reconciler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reconciler{
		stockRepo:   stockRepo,
		movRepo:     movRepo,
		alerts:      alerts,
		log:         log,
		concurrency: concurrency,
	}
}

// Reconcile suma los deltas de la pareja en orden de creación partiendo de cero y compara con la fila.
func (r *Reconciler) Reconcile(ctx context.Context, variantID, warehouseID string) (*ReconcileResult, error) {
	if err := validateID("variant_id", variantID); err != nil {
		return nil, err
	}
	if err := validateID("warehouse_id", warehouseID); err != nil {
		return nil, err
	}

	// Fila y ledger se leen por separado: si la versión de la fila cambia entre ambas lecturas
	// (un movimiento confirmado en medio), la suma no es comparable y se repite la lectura.
	var res *ReconcileResult
	for attempt := 0; attempt < maxReconcileReads; attempt++ {
		rec, err := r.stockRepo.Get(ctx, variantID, warehouseID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("stock de variante %s en bodega %s: %w", variantID, warehouseID, domain.ErrNotFound)
		}
		var fold domaininv.LedgerFold
		if err := r.movRepo.ForEachByPair(ctx, variantID, warehouseID, func(m *entity.MovementEntry) error {
			fold.Add(m)
			return nil
		}); err != nil {
			return nil, err
		}
		res = buildResult(rec, &fold)

		after, err := r.stockRepo.Get(ctx, variantID, warehouseID)
		if err != nil {
			return nil, err
		}
		if after != nil && after.Version == rec.Version {
			break
		}
	}
	return res, nil
}

func buildResult(rec *entity.StockRecord, fold *domaininv.LedgerFold) *ReconcileResult {
	return &ReconcileResult{
		VariantID:          rec.VariantID,
		WarehouseID:        rec.WarehouseID,
		Consistent:         fold.Matches(rec.Quantity),
		RecomputedQuantity: fold.Quantity,
		StoredQuantity:     rec.Quantity,
		EntryCount:         fold.Entries,
		ChainBreaks:        fold.ChainBreaks,
	}
}

// ReconcileAll audita todas las parejas con concurrencia acotada. Cada divergencia se registra como
// IntegrityViolation y se envía al sink de alertas. Una pareja que falla al leerse queda en Failed y
// la corrida sigue con las demás; solo la cancelación del contexto la detiene.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*ReconcileAllReport, error) {
	report := &ReconcileAllReport{StartedAt: time.Now().UTC()}
	keys, err := r.stockRepo.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.concurrency)
	for _, key := range keys {
		key := key
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := r.Reconcile(ctx, key.VariantID, key.WarehouseID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Error().Err(err).
					Str("variant_id", key.VariantID).
					Str("warehouse_id", key.WarehouseID).
					Msg("no se pudo reconciliar la pareja; se continúa con las demás")
				mu.Lock()
				report.Failed = append(report.Failed, ReconcileFailure{VariantID: key.VariantID, WarehouseID: key.WarehouseID, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Checked++
			if !res.Consistent {
				report.Inconsistent = append(report.Inconsistent, *res)
			}
			mu.Unlock()
			if !res.Consistent {
				r.reportViolation(ctx, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconciliación interrumpida: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reconciliación interrumpida: %w", err)
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (r *Reconciler) reportViolation(ctx context.Context, res *ReconcileResult) {
	r.log.Error().
		Err(domain.ErrIntegrityViolation).
		Str("variant_id", res.VariantID).
		Str("warehouse_id", res.WarehouseID).
		Int64("stored_quantity", res.StoredQuantity).
		Int64("recomputed_quantity", res.RecomputedQuantity).
		Int64("chain_breaks", res.ChainBreaks).
		Msg("divergencia entre stock y ledger; requiere ajuste manual")
	r.alerts.Dispatch(ctx, entity.Alert{
		Type:               entity.AlertIntegrityViolation,
		VariantID:          res.VariantID,
		WarehouseID:        res.WarehouseID,
		Quantity:           res.StoredQuantity,
		RecomputedQuantity: res.RecomputedQuantity,
	})
}
