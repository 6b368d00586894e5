package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord representa el stock actual de una variante en una bodega.
// Solo el StockMutator la modifica; Quantity siempre coincide con la suma de sus movimientos.
type StockRecord struct {
	VariantID        string
	WarehouseID      string
	Quantity         int64
	ReservedQuantity int64           // 0 <= ReservedQuantity <= Quantity
	MinimumStock     int64           // umbral para alerta de stock bajo
	AverageCostPrice decimal.Decimal // costo promedio ponderado (valoración)
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available unidades que pueden descontarse sin tocar lo reservado.
func (s *StockRecord) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}

// IsLowStock indica si el stock quedó en o por debajo del mínimo.
func (s *StockRecord) IsLowStock() bool {
	return s.Quantity <= s.MinimumStock
}

// Key pareja (variante, bodega) de la fila.
func (s *StockRecord) Key() StockKey {
	return StockKey{VariantID: s.VariantID, WarehouseID: s.WarehouseID}
}

// StockKey identifica una StockRecord.
type StockKey struct {
	VariantID   string
	WarehouseID string
}

// Less orden canónico (variante, bodega) usado para tomar bloqueos siempre en el mismo orden.
func (k StockKey) Less(o StockKey) bool {
	if k.VariantID != o.VariantID {
		return k.VariantID < o.VariantID
	}
	return k.WarehouseID < o.WarehouseID
}
