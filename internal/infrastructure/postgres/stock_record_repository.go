package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

const stockRecordColumns = `variant_id, warehouse_id, quantity, reserved_quantity, minimum_stock,
	average_cost_price, version, created_at, updated_at`

// StockRecordRepo implementación de StockRecordRepository sobre PostgreSQL (usable con pool o tx).
type StockRecordRepo struct {
	q Querier
}

// NewStockRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockRecordRepository(q Querier) *StockRecordRepo {
	return &StockRecordRepo{q: q}
}

// Create inserta la fila; false si la pareja ya existía.
func (r *StockRecordRepo) Create(ctx context.Context, rec *entity.StockRecord) (bool, error) {
	query := `
		INSERT INTO stock_records (variant_id, warehouse_id, quantity, reserved_quantity, minimum_stock,
			average_cost_price, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (variant_id, warehouse_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		rec.VariantID, rec.WarehouseID, rec.Quantity, rec.ReservedQuantity, rec.MinimumStock,
		rec.AverageCostPrice, rec.Version, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, mapError("create stock record", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get lectura sin bloqueo; nil si la pareja no existe.
func (r *StockRecordRepo) Get(ctx context.Context, variantID, warehouseID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + ` FROM stock_records WHERE variant_id = $1 AND warehouse_id = $2`
	return r.getOne(ctx, "get stock record", query, variantID, warehouseID)
}

// GetForUpdate obtiene la fila y la bloquea hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *StockRecordRepo) GetForUpdate(ctx context.Context, variantID, warehouseID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + ` FROM stock_records WHERE variant_id = $1 AND warehouse_id = $2 FOR UPDATE`
	return r.getOne(ctx, "get stock record for update", query, variantID, warehouseID)
}

func (r *StockRecordRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.StockRecord, error) {
	rec, err := scanStockRecord(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return rec, nil
}

// Update escribe cantidades, costo y versión. Solo se llama con la fila bloqueada.
func (r *StockRecordRepo) Update(ctx context.Context, rec *entity.StockRecord) error {
	query := `
		UPDATE stock_records
		SET quantity = $3, reserved_quantity = $4, minimum_stock = $5, average_cost_price = $6,
			version = $7, updated_at = $8
		WHERE variant_id = $1 AND warehouse_id = $2`
	tag, err := r.q.Exec(ctx, query,
		rec.VariantID, rec.WarehouseID, rec.Quantity, rec.ReservedQuantity, rec.MinimumStock,
		rec.AverageCostPrice, rec.Version, rec.UpdatedAt,
	)
	if err != nil {
		return mapError("update stock record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock record %s/%s: fila no encontrada", rec.VariantID, rec.WarehouseID)
	}
	return nil
}

// List filtra por bodega y stock bajo, ordenado por (variante, bodega).
func (r *StockRecordRepo) List(ctx context.Context, f repository.StockFilter) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + ` FROM stock_records WHERE 1=1`
	args := []any{}
	pos := 1
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	if f.LowStockThreshold != nil {
		query += fmt.Sprintf(" AND quantity <= $%d", pos)
		args = append(args, *f.LowStockThreshold)
		pos++
	}
	if f.LowStockOnly {
		query += " AND quantity <= minimum_stock"
	}
	query += " ORDER BY variant_id, warehouse_id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", pos, pos+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list stock records", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		rec, err := scanStockRecord(rows)
		if err != nil {
			return nil, mapError("scan stock record", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list stock records", err)
	}
	return list, nil
}

// ListKeys todas las parejas existentes (entrada del reconciliador).
func (r *StockRecordRepo) ListKeys(ctx context.Context) ([]entity.StockKey, error) {
	rows, err := r.q.Query(ctx, `SELECT variant_id, warehouse_id FROM stock_records ORDER BY variant_id, warehouse_id`)
	if err != nil {
		return nil, mapError("list stock keys", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.StockKey, error) {
		var k entity.StockKey
		err := row.Scan(&k.VariantID, &k.WarehouseID)
		return k, err
	})
	if err != nil {
		return nil, mapError("list stock keys", err)
	}
	return keys, nil
}

func scanStockRecord(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(
		&s.VariantID, &s.WarehouseID, &s.Quantity, &s.ReservedQuantity, &s.MinimumStock,
		&s.AverageCostPrice, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
