package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// PlaceOrderLine línea del carrito.
type PlaceOrderLine struct {
	VariantID   string          `json:"variant_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// PlaceOrderRequest body para POST /api/orders.
type PlaceOrderRequest struct {
	CustomerRef string           `json:"customer_ref"`
	Lines       []PlaceOrderLine `json:"lines"`
}

// AdvanceStatusRequest body para POST /api/orders/:id/status.
type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

// OrderLineResponse salida de una línea.
type OrderLineResponse struct {
	ID          string          `json:"id"`
	LineNo      int             `json:"line_no"`
	VariantID   string          `json:"variant_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID          string              `json:"id"`
	CustomerRef string              `json:"customer_ref"`
	Status      string              `json:"status"`
	Total       decimal.Decimal     `json:"total"`
	Lines       []OrderLineResponse `json:"lines"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewOrderResponse convierte el pedido a su salida HTTP.
func NewOrderResponse(o *entity.Order) *OrderResponse {
	out := &OrderResponse{
		ID:          o.ID,
		CustomerRef: o.CustomerRef,
		Status:      string(o.Status),
		Total:       o.Total,
		Lines:       make([]OrderLineResponse, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, OrderLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			VariantID:   l.VariantID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return out
}
