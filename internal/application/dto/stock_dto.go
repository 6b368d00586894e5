package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// MutateStockRequest body para POST /api/stock/mutate.
type MutateStockRequest struct {
	VariantID     string           `json:"variant_id"`
	WarehouseID   string           `json:"warehouse_id"`
	Delta         int64            `json:"delta"`
	Cause         string           `json:"cause"`
	ReferenceType string           `json:"reference_type,omitempty"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	Note          string           `json:"note,omitempty"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
}

// InitializeStockRequest body para POST /api/stock/initialize.
type InitializeStockRequest struct {
	VariantID    string           `json:"variant_id"`
	WarehouseID  string           `json:"warehouse_id"`
	Quantity     int64            `json:"quantity"`
	MinimumStock int64            `json:"minimum_stock"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
}

// SetMinimumStockRequest body para PUT /api/stock/minimum.
type SetMinimumStockRequest struct {
	VariantID    string `json:"variant_id"`
	WarehouseID  string `json:"warehouse_id"`
	MinimumStock int64  `json:"minimum_stock"`
}

// StockLevelsRequest parámetros de GET /api/stock/levels.
type StockLevelsRequest struct {
	WarehouseID       string `query:"warehouse_id"`
	LowStockThreshold *int64 `query:"low_stock_threshold"`
	LowStock          bool   `query:"low_stock"`
	PageRequest
}

// StockRecordResponse salida de una StockRecord.
type StockRecordResponse struct {
	VariantID         string          `json:"variant_id"`
	WarehouseID       string          `json:"warehouse_id"`
	Quantity          int64           `json:"quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	AvailableQuantity int64           `json:"available_quantity"`
	MinimumStock      int64           `json:"minimum_stock"`
	AverageCostPrice  decimal.Decimal `json:"average_cost_price"`
	LowStock          bool            `json:"low_stock"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// StockLevelsResponse lista paginada de StockRecords.
type StockLevelsResponse struct {
	Items []StockRecordResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// MovementResponse salida de un MovementEntry.
type MovementResponse struct {
	ID            int64     `json:"id"`
	VariantID     string    `json:"variant_id"`
	WarehouseID   string    `json:"warehouse_id"`
	Delta         int64     `json:"delta"`
	StockBefore   int64     `json:"stock_before"`
	StockAfter    int64     `json:"stock_after"`
	Cause         string    `json:"cause"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MutationResponse salida de stock.mutate; Warning se llena cuando queda stock bajo.
type MutationResponse struct {
	Movement *MovementResponse   `json:"movement,omitempty"`
	Stock    StockRecordResponse `json:"stock"`
	LowStock bool                `json:"low_stock"`
	Warning  string              `json:"warning,omitempty"`
}

// NewStockRecordResponse convierte la entidad a su salida HTTP.
func NewStockRecordResponse(r *entity.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
		AvailableQuantity: r.Available(),
		MinimumStock:      r.MinimumStock,
		AverageCostPrice:  r.AverageCostPrice,
		LowStock:          r.IsLowStock(),
		UpdatedAt:         r.UpdatedAt,
	}
}

// NewMovementResponse convierte el movimiento a su salida HTTP.
func NewMovementResponse(m *entity.MovementEntry) *MovementResponse {
	if m == nil {
		return nil
	}
	return &MovementResponse{
		ID:            m.ID,
		VariantID:     m.VariantID,
		WarehouseID:   m.WarehouseID,
		Delta:         m.Delta,
		StockBefore:   m.StockBefore,
		StockAfter:    m.StockAfter,
		Cause:         string(m.Cause),
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		ActorID:       m.ActorID,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}
