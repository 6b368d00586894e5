package repository

import (
	"context"
	"time"
)

// Dimensiones de agrupación del reporte.
const (
	GroupByType      = "type"
	GroupByWarehouse = "warehouse"
	GroupByDay       = "day"
	GroupByProduct   = "product"
)

// MovementSummaryFilter parámetros de la agregación (rango cerrado-abierto [From, To)).
type MovementSummaryFilter struct {
	From        time.Time
	To          time.Time
	GroupBy     string
	WarehouseID string
}

// MovementSummaryRow resultado crudo por grupo. Lo produce el store; el caso de uso lo convierte en DTO.
type MovementSummaryRow struct {
	Key           string // causa, bodega, día (YYYY-MM-DD, UTC) o producto
	MovementCount int64
	TotalIn       int64 // suma de deltas positivos
	TotalOut      int64 // suma de |deltas negativos|
	Net           int64 // suma con signo
	Volume        int64 // suma de |delta|
}

// ReportRepository consultas de solo lectura sobre el ledger. No modifica datos.
type ReportRepository interface {
	SummarizeMovements(ctx context.Context, filter MovementSummaryFilter) ([]MovementSummaryRow, error)
}
