// Package report agrega el ledger de movimientos para reportes de solo lectura.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	domaininv "github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// Aggregator resume movimientos por causa, bodega, día o producto.
//
// Fuente de datos: ReportRepository (consultas read-only, read committed).
// Nunca escribe: los totales se calculan sobre el ledger, no sobre stock_records.
type Aggregator struct {
	reportRepo repository.ReportRepository
	now        func() time.Time
}

// NewAggregator construye el caso de uso.
func NewAggregator(reportRepo repository.ReportRepository) *Aggregator {
	return &Aggregator{reportRepo: reportRepo, now: func() time.Time { return time.Now().UTC() }}
}

// Summarize construye el SummaryResponse del periodo pedido.
func (a *Aggregator) Summarize(ctx context.Context, req dto.SummaryRequest) (*dto.SummaryResponse, error) {
	groupBy := req.GroupBy
	if groupBy == "" {
		groupBy = repository.GroupByType
	}
	switch groupBy {
	case repository.GroupByType, repository.GroupByWarehouse, repository.GroupByDay, repository.GroupByProduct:
	default:
		return nil, domain.NewValidationError("group_by", fmt.Sprintf("valor %q no soportado (type, warehouse, day, product)", groupBy))
	}

	from, to, err := a.parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	rows, err := a.reportRepo.SummarizeMovements(ctx, repository.MovementSummaryFilter{
		From:        from,
		To:          to,
		GroupBy:     groupBy,
		WarehouseID: req.WarehouseID,
	})
	if err != nil {
		return nil, fmt.Errorf("report: resumen de movimientos: %w", err)
	}

	out := &dto.SummaryResponse{
		Period: dto.PeriodDTO{
			StartDate: from.Format(domaininv.DayLayout),
			EndDate:   to.Add(-time.Nanosecond).Format(domaininv.DayLayout),
		},
		GroupBy: groupBy,
		Rows:    make([]dto.SummaryRowDTO, 0, len(rows)),
		Totals:  dto.SummaryRowDTO{Key: "total"},
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, dto.SummaryRowDTO{
			Key:           r.Key,
			MovementCount: r.MovementCount,
			TotalIn:       r.TotalIn,
			TotalOut:      r.TotalOut,
			Net:           r.Net,
			Volume:        r.Volume,
		})
		out.Totals.MovementCount += r.MovementCount
		out.Totals.TotalIn += r.TotalIn
		out.Totals.TotalOut += r.TotalOut
		out.Totals.Net += r.Net
		out.Totals.Volume += r.Volume
	}
	return out, nil
}

// parsePeriod convierte las fechas (UTC) al rango [from, to). end_date incluye el día completo.
// Sin fechas: primer día del mes actual hasta ahora.
func (a *Aggregator) parsePeriod(startStr, endStr string) (from, to time.Time, err error) {
	now := a.now()

	if endStr == "" {
		to = now
	} else {
		to, err = time.ParseInLocation(domaininv.DayLayout, endStr, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, domain.NewValidationError("end_date", "formato esperado YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
	}

	if startStr == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		from, err = time.ParseInLocation(domaininv.DayLayout, startStr, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, domain.NewValidationError("start_date", "formato esperado YYYY-MM-DD")
		}
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, domain.NewValidationError("start_date", "no puede ser posterior a end_date")
	}
	return from, to, nil
}
