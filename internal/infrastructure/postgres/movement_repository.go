package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, variant_id, warehouse_id, delta, stock_before, stock_after, cause,
	reference_type, reference_id, actor_id, note, created_at`

// MovementRepo ledger append-only sobre PostgreSQL. La tabla rechaza UPDATE y DELETE por trigger.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el movimiento. El id (BIGSERIAL) se asigna con la fila de stock bloqueada,
// por eso es creciente dentro de cada pareja.
func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementEntry) error {
	query := `
		INSERT INTO stock_movements (variant_id, warehouse_id, delta, stock_before, stock_after, cause,
			reference_type, reference_id, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		m.VariantID, m.WarehouseID, m.Delta, m.StockBefore, m.StockAfter, string(m.Cause),
		m.ReferenceType, m.ReferenceID, m.ActorID, m.Note, m.CreatedAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return mapError("append movement", err)
	}
	return nil
}

// List página del ledger, más reciente primero.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementEntry, error) {
	where, args := movementWhere(f)
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()
	var list []*entity.MovementEntry
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, mapError("scan movement", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list movements", err)
	}
	return list, nil
}

// Count total de movimientos que cumplen el filtro (sin paginación).
func (r *MovementRepo) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	where, args := movementWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&n); err != nil {
		return 0, mapError("count movements", err)
	}
	return n, nil
}

// ForEachByPair recorre los movimientos de la pareja por id ascendente sin cargarlos todos en memoria.
func (r *MovementRepo) ForEachByPair(ctx context.Context, variantID, warehouseID string, fn func(*entity.MovementEntry) error) error {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE variant_id = $1 AND warehouse_id = $2 ORDER BY id ASC`
	rows, err := r.q.Query(ctx, query, variantID, warehouseID)
	if err != nil {
		return mapError("scan ledger", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return mapError("scan movement", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return mapError("scan ledger", err)
	}
	return nil
}

func movementWhere(f repository.MovementFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.VariantID != "" {
		add("variant_id = $%d", f.VariantID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.Cause != "" {
		add("cause = $%d", string(f.Cause))
	}
	if f.ReferenceType != "" {
		add("reference_type = $%d", f.ReferenceType)
	}
	if f.ReferenceID != "" {
		add("reference_id = $%d", f.ReferenceID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	return where, args
}

func scanMovement(row pgx.Row) (*entity.MovementEntry, error) {
	var (
		m                           entity.MovementEntry
		cause                       string
		refType, refID, actor, note *string
	)
	err := row.Scan(
		&m.ID, &m.VariantID, &m.WarehouseID, &m.Delta, &m.StockBefore, &m.StockAfter, &cause,
		&refType, &refID, &actor, &note, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Cause = entity.MovementCause(cause)
	m.ReferenceType = deref(refType)
	m.ReferenceID = deref(refID)
	m.ActorID = deref(actor)
	m.Note = deref(note)
	return &m, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
