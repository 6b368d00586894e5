package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del pedido. Terminales: delivered y cancelled.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusConfirmed,
	OrderStatusConfirmed:  OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// Valid indica si el estado es conocido.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal delivered o cancelled.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable: la mercancía aún no salió de bodega.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed || s == OrderStatusProcessing
}

// CanAdvanceTo permite solo el siguiente paso del flujo pending → ... → delivered.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	next, ok := nextStatus[s]
	return ok && next == target
}

// Order cabecera del pedido (solo los campos relevantes para inventario).
type Order struct {
	ID          string
	CustomerRef string
	Status      OrderStatus
	Total       decimal.Decimal
	Lines       []*OrderLine
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine línea del pedido; inmutable una vez el pedido está confirmado.
type OrderLine struct {
	ID          string
	OrderID     string
	LineNo      int
	VariantID   string
	WarehouseID string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}
