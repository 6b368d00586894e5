package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos y líneas sobre PostgreSQL (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Create persiste la cabecera del pedido.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (id, customer_ref, status, total, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`
	_, err := r.q.Exec(ctx, query, o.ID, o.CustomerRef, string(o.Status), o.Total, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapError("create order", err)
	}
	return nil
}

// CreateLine persiste una línea del pedido.
func (r *OrderRepo) CreateLine(ctx context.Context, l *entity.OrderLine) error {
	query := `
		INSERT INTO order_lines (id, order_id, line_no, variant_id, warehouse_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, l.ID, l.OrderID, l.LineNo, l.VariantID, l.WarehouseID, l.Quantity, l.UnitPrice, l.Subtotal)
	if err != nil {
		return mapError("create order line", err)
	}
	return nil
}

// GetByID obtiene el pedido con sus líneas; nil si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate igual que GetByID pero bloquea la cabecera (cancelaciones concurrentes se serializan).
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, true)
}

func (r *OrderRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.Order, error) {
	query := `
		SELECT id, customer_ref, status, total, COALESCE(created_by, ''), created_at, updated_at
		FROM orders WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var (
		o      entity.Order
		status string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.CustomerRef, &status, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get order", err)
	}
	o.Status = entity.OrderStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, line_no, variant_id, warehouse_id, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, mapError("list order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineNo, &l.VariantID, &l.WarehouseID, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, mapError("scan order line", err)
		}
		o.Lines = append(o.Lines, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list order lines", err)
	}
	return &o, nil
}

// UpdateStatus cambia el estado del pedido.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	if err != nil {
		return mapError("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order status %s: pedido no encontrado", id)
	}
	return nil
}
