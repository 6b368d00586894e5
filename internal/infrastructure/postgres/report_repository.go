package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo consultas de agregación sobre el ledger (read-only).
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el adaptador.
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

var groupExpr = map[string]string{
	repository.GroupByType:      "m.cause",
	repository.GroupByWarehouse: "m.warehouse_id::text",
	repository.GroupByDay:       "to_char(m.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')",
	repository.GroupByProduct:   "COALESCE(v.product_id::text, m.variant_id::text)",
}

// SummarizeMovements agrupa los movimientos de [From, To).
func (r *ReportRepo) SummarizeMovements(ctx context.Context, f repository.MovementSummaryFilter) ([]repository.MovementSummaryRow, error) {
	expr, ok := groupExpr[f.GroupBy]
	if !ok {
		return nil, fmt.Errorf("summarize movements: agrupación %q no soportada", f.GroupBy)
	}
	query := `
		SELECT ` + expr + ` AS key,
			COUNT(*),
			COALESCE(SUM(m.delta) FILTER (WHERE m.delta > 0), 0),
			COALESCE(-SUM(m.delta) FILTER (WHERE m.delta < 0), 0),
			COALESCE(SUM(m.delta), 0),
			COALESCE(SUM(ABS(m.delta)), 0)
		FROM stock_movements m
		LEFT JOIN product_variants v ON v.id = m.variant_id
		WHERE m.created_at >= $1 AND m.created_at < $2`
	args := []any{f.From, f.To}
	if f.WarehouseID != "" {
		query += " AND m.warehouse_id = $3"
		args = append(args, f.WarehouseID)
	}
	query += " GROUP BY 1 ORDER BY 1"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("summarize movements", err)
	}
	defer rows.Close()
	var out []repository.MovementSummaryRow
	for rows.Next() {
		var row repository.MovementSummaryRow
		if err := rows.Scan(&row.Key, &row.MovementCount, &row.TotalIn, &row.TotalOut, &row.Net, &row.Volume); err != nil {
			return nil, mapError("scan summary row", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("summarize movements", err)
	}
	return out, nil
}
