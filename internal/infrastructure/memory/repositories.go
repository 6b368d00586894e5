package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var (
	_ repository.StockRecordRepository = (*StockRecordRepo)(nil)
	_ repository.MovementRepository    = (*MovementRepo)(nil)
	_ repository.OrderRepository       = (*OrderRepo)(nil)
	_ repository.ReportRepository      = (*ReportRepo)(nil)
	_ repository.CatalogLookup         = (*CatalogRepo)(nil)
)

// StockRecordRepo stock_records en memoria. Con tx nil lee lo confirmado.
type StockRecordRepo struct {
	s  *Store
	tx *txState
}

func (r *StockRecordRepo) Create(ctx context.Context, rec *entity.StockRecord) (bool, error) {
	created := false
	err := r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		if r.s.stockFor(tx, rec.Key()) != nil {
			return nil
		}
		tx.stock[rec.Key()] = cloneStock(rec)
		created = true
		return nil
	})
	return created, err
}

func (r *StockRecordRepo) Get(_ context.Context, variantID, warehouseID string) (*entity.StockRecord, error) {
	return r.s.stockFor(r.tx, entity.StockKey{VariantID: variantID, WarehouseID: warehouseID}), nil
}

// GetForUpdate igual que Get: la tx ya tiene el candado global.
func (r *StockRecordRepo) GetForUpdate(ctx context.Context, variantID, warehouseID string) (*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get stock record for update: %w: %v", domain.ErrTransientStore, err)
	}
	return r.Get(ctx, variantID, warehouseID)
}

func (r *StockRecordRepo) Update(ctx context.Context, rec *entity.StockRecord) error {
	return r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		if r.s.stockFor(tx, rec.Key()) == nil {
			return fmt.Errorf("update stock record %s/%s: fila no encontrada", rec.VariantID, rec.WarehouseID)
		}
		if rec.Quantity < 0 || rec.ReservedQuantity < 0 || rec.ReservedQuantity > rec.Quantity {
			return fmt.Errorf("update stock record: %w: cantidades fuera de rango", domain.ErrIntegrityViolation)
		}
		tx.stock[rec.Key()] = cloneStock(rec)
		return nil
	})
}

func (r *StockRecordRepo) List(_ context.Context, f repository.StockFilter) ([]*entity.StockRecord, error) {
	var out []*entity.StockRecord
	for _, rec := range r.s.stockSnapshot(r.tx) {
		if f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID {
			continue
		}
		if f.LowStockThreshold != nil && rec.Quantity > *f.LowStockThreshold {
			continue
		}
		if f.LowStockOnly && !rec.IsLowStock() {
			continue
		}
		out = append(out, rec)
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *StockRecordRepo) ListKeys(_ context.Context) ([]entity.StockKey, error) {
	snap := r.s.stockSnapshot(r.tx)
	keys := make([]entity.StockKey, 0, len(snap))
	for _, rec := range snap {
		keys = append(keys, rec.Key())
	}
	return keys, nil
}

// MovementRepo ledger en memoria (solo agrega).
type MovementRepo struct {
	s  *Store
	tx *txState
}

func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementEntry) error {
	return r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		if r.s.stockFor(tx, m.Key()) == nil {
			return fmt.Errorf("append movement: %w: la pareja no tiene stock_record", domain.ErrIntegrityViolation)
		}
		if !m.Consistent() || m.StockBefore < 0 || m.StockAfter < 0 {
			return fmt.Errorf("append movement: %w: movimiento inconsistente", domain.ErrIntegrityViolation)
		}
		tx.nextID++
		m.ID = tx.nextID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now()
		}
		tx.movements = append(tx.movements, cloneMovement(m))
		return nil
	})
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.MovementEntry, error) {
	all := r.s.committedMovements(r.tx)
	var out []*entity.MovementEntry
	for i := len(all) - 1; i >= 0; i-- {
		if matchMovement(all[i], f) {
			out = append(out, cloneMovement(all[i]))
		}
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *MovementRepo) Count(_ context.Context, f repository.MovementFilter) (int, error) {
	n := 0
	for _, m := range r.s.committedMovements(r.tx) {
		if matchMovement(m, f) {
			n++
		}
	}
	return n, nil
}

func (r *MovementRepo) ForEachByPair(ctx context.Context, variantID, warehouseID string, fn func(*entity.MovementEntry) error) error {
	for _, m := range r.s.committedMovements(r.tx) {
		if m.VariantID != variantID || m.WarehouseID != warehouseID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan ledger: %w: %v", domain.ErrTransientStore, err)
		}
		if err := fn(cloneMovement(m)); err != nil {
			return err
		}
	}
	return nil
}

func matchMovement(m *entity.MovementEntry, f repository.MovementFilter) bool {
	switch {
	case f.VariantID != "" && m.VariantID != f.VariantID:
		return false
	case f.WarehouseID != "" && m.WarehouseID != f.WarehouseID:
		return false
	case f.Cause != "" && m.Cause != f.Cause:
		return false
	case f.ReferenceType != "" && m.ReferenceType != f.ReferenceType:
		return false
	case f.ReferenceID != "" && m.ReferenceID != f.ReferenceID:
		return false
	case f.From != nil && m.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !m.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

// OrderRepo pedidos en memoria.
type OrderRepo struct {
	s  *Store
	tx *txState
}

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	return r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		if r.s.orderFor(tx, o.ID) != nil {
			return fmt.Errorf("create order: %w", domain.ErrDuplicate)
		}
		c := cloneOrder(o)
		c.Lines = nil
		tx.orders[o.ID] = c
		return nil
	})
}

func (r *OrderRepo) CreateLine(ctx context.Context, l *entity.OrderLine) error {
	return r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		o := r.s.orderFor(tx, l.OrderID)
		if o == nil {
			return fmt.Errorf("create order line: pedido %s no existe", l.OrderID)
		}
		for _, existing := range o.Lines {
			if existing.LineNo == l.LineNo {
				return fmt.Errorf("create order line: %w", domain.ErrDuplicate)
			}
		}
		lc := *l
		o.Lines = append(o.Lines, &lc)
		tx.orders[o.ID] = o
		return nil
	})
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	return r.s.orderFor(r.tx, id), nil
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, at time.Time) error {
	return r.s.autocommit(ctx, r.tx, func(tx *txState) error {
		o := r.s.orderFor(tx, id)
		if o == nil {
			return fmt.Errorf("update order status %s: pedido no encontrado", id)
		}
		o.Status = status
		o.UpdatedAt = at
		tx.orders[id] = o
		return nil
	})
}

// ReportRepo agregaciones sobre el ledger confirmado.
type ReportRepo struct {
	s *Store
}

func (r *ReportRepo) SummarizeMovements(_ context.Context, f repository.MovementSummaryFilter) ([]repository.MovementSummaryRow, error) {
	r.s.mu.RLock()
	products := make(map[string]string, len(r.s.variants))
	for id, v := range r.s.variants {
		products[id] = v.productID
	}
	r.s.mu.RUnlock()

	acc := domaininv.NewSummaryAccumulator()
	for _, m := range r.s.committedMovements(nil) {
		if m.CreatedAt.Before(f.From) || !m.CreatedAt.Before(f.To) {
			continue
		}
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		key := domaininv.GroupKey(m, f.GroupBy, func(v string) string { return products[v] })
		acc.Add(key, m.Delta)
	}
	return acc.Rows(), nil
}

// CatalogRepo catálogo en memoria. Igual que en PostgreSQL, la variante existe en una bodega si ambas
// están registradas y la pareja tiene stock_record. Con OpenCatalog las no registradas cuentan como activas.
type CatalogRepo struct {
	s *Store
}

func (r *CatalogRepo) VariantExists(_ context.Context, variantID, warehouseID string) (repository.VariantStatus, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.stock[entity.StockKey{VariantID: variantID, WarehouseID: warehouseID}]; !ok {
		return repository.VariantStatus{}, nil
	}
	v, vok := r.s.variants[variantID]
	whActive, wok := r.s.warehouses[warehouseID]
	if !r.s.openCatalog && (!vok || !wok) {
		return repository.VariantStatus{}, nil
	}
	active := true
	if vok {
		active = v.active
	}
	if wok {
		active = active && whActive
	}
	return repository.VariantStatus{Exists: true, Active: active}, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
