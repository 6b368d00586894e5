package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// QueryUseCase lecturas de stock y ledger (sin bloqueos, read committed).
type QueryUseCase struct {
	stockRepo repository.StockRecordRepository
	movRepo   repository.MovementRepository
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository) *QueryUseCase {
	return &QueryUseCase{stockRepo: stockRepo, movRepo: movRepo}
}

// ListLevels lista StockRecords con filtro de bodega y de stock bajo.
func (uc *QueryUseCase) ListLevels(ctx context.Context, req dto.StockLevelsRequest) (*dto.StockLevelsResponse, error) {
	if req.WarehouseID != "" {
		if err := validateID("warehouse_id", req.WarehouseID); err != nil {
			return nil, err
		}
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		return nil, domain.NewValidationError("low_stock_threshold", "no puede ser negativo")
	}
	req.DefaultPage()
	list, err := uc.stockRepo.List(ctx, repository.StockFilter{
		WarehouseID:       req.WarehouseID,
		LowStockThreshold: req.LowStockThreshold,
		LowStockOnly:      req.LowStock,
		Limit:             req.Limit,
		Offset:            req.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.StockLevelsResponse{
		Items: make([]dto.StockRecordResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: req.Limit, Offset: req.Offset},
	}
	for _, r := range list {
		out.Items = append(out.Items, dto.NewStockRecordResponse(r))
	}
	return out, nil
}

// QueryLedger devuelve una página del ledger, del movimiento más reciente al más antiguo.
func (uc *QueryUseCase) QueryLedger(ctx context.Context, req dto.LedgerQueryRequest) (*dto.LedgerPageResponse, error) {
	f := repository.MovementFilter{
		VariantID:   req.VariantID,
		WarehouseID: req.WarehouseID,
		Cause:       entity.MovementCause(req.Cause),
	}
	if f.VariantID != "" {
		if err := validateID("variant_id", f.VariantID); err != nil {
			return nil, err
		}
	}
	if f.WarehouseID != "" {
		if err := validateID("warehouse_id", f.WarehouseID); err != nil {
			return nil, err
		}
	}
	if f.Cause != "" && !f.Cause.Valid() {
		return nil, domain.NewValidationError("cause", fmt.Sprintf("causa desconocida %q", f.Cause))
	}
	if req.StartDate != "" {
		t, err := parseBound(req.StartDate, false)
		if err != nil {
			return nil, domain.NewValidationError("start_date", err.Error())
		}
		f.From = &t
	}
	if req.EndDate != "" {
		t, err := parseBound(req.EndDate, true)
		if err != nil {
			return nil, domain.NewValidationError("end_date", err.Error())
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, domain.NewValidationError("start_date", "no puede ser posterior a end_date")
	}

	req.DefaultPage()
	f.Limit, f.Offset = req.Limit, req.Offset
	total, err := uc.movRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	list, err := uc.movRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.LedgerPageResponse{
		Items: make([]dto.MovementResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: req.Limit, Offset: req.Offset, Total: total},
	}
	for _, m := range list {
		out.Items = append(out.Items, *dto.NewMovementResponse(m))
	}
	return out, nil
}

// parseBound acepta YYYY-MM-DD (UTC) o RFC3339. Un día como cota superior incluye el día completo.
func parseBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(domaininv.DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("formato esperado YYYY-MM-DD o RFC3339")
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
