package inventory

import (
	"sort"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// DayLayout formato de la llave de agrupación por día (UTC).
const DayLayout = "2006-01-02"

// GroupKey calcula la llave de un movimiento para la dimensión pedida.
// productOf resuelve variante → producto; si no lo conoce se agrupa bajo la variante.
func GroupKey(m *entity.MovementEntry, groupBy string, productOf func(variantID string) string) string {
	switch groupBy {
	case repository.GroupByType:
		return string(m.Cause)
	case repository.GroupByWarehouse:
		return m.WarehouseID
	case repository.GroupByDay:
		return m.CreatedAt.UTC().Format(DayLayout)
	case repository.GroupByProduct:
		if productOf != nil {
			if p := productOf(m.VariantID); p != "" {
				return p
			}
		}
		return m.VariantID
	}
	return ""
}

// SummaryAccumulator agrega movimientos por llave (implementación en memoria de la consulta SQL).
type SummaryAccumulator struct {
	rows map[string]*repository.MovementSummaryRow
}

// NewSummaryAccumulator construye el acumulador vacío.
func NewSummaryAccumulator() *SummaryAccumulator {
	return &SummaryAccumulator{rows: make(map[string]*repository.MovementSummaryRow)}
}

// Add suma el delta en la fila de la llave.
func (a *SummaryAccumulator) Add(key string, delta int64) {
	row, ok := a.rows[key]
	if !ok {
		row = &repository.MovementSummaryRow{Key: key}
		a.rows[key] = row
	}
	row.MovementCount++
	row.Net += delta
	if delta > 0 {
		row.TotalIn += delta
		row.Volume += delta
	} else {
		row.TotalOut -= delta
		row.Volume -= delta
	}
}

// Rows devuelve las filas ordenadas por llave.
func (a *SummaryAccumulator) Rows() []repository.MovementSummaryRow {
	out := make([]repository.MovementSummaryRow, 0, len(a.rows))
	for _, r := range a.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
