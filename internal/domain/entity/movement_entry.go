package entity

import "time"

// Causa de un movimiento del ledger.
type MovementCause string

const (
	CauseManualAdd    MovementCause = "manual_add"    // entrada manual
	CauseManualAdjust MovementCause = "manual_adjust" // ajuste de operador (corrige divergencias)
	CauseInitialStock MovementCause = "initial_stock" // carga inicial
	CauseOrderReserve MovementCause = "order_reserve"
	CauseOrderRelease MovementCause = "order_release" // devolución por cancelación
	CauseOrderFulfill MovementCause = "order_fulfill" // descuento al crear el pedido
)

// Tipos de referencia polimórfica.
const (
	ReferenceOrder  = "order"
	ReferenceManual = "manual"
	ReferenceImport = "import"
)

// Valid indica si la causa es conocida.
func (c MovementCause) Valid() bool {
	switch c {
	case CauseManualAdd, CauseManualAdjust, CauseInitialStock,
		CauseOrderReserve, CauseOrderRelease, CauseOrderFulfill:
		return true
	}
	return false
}

// AllowsDelta valida el signo del delta según la causa. manual_adjust acepta ambos.
func (c MovementCause) AllowsDelta(delta int64) bool {
	if delta == 0 {
		return false
	}
	switch c {
	case CauseManualAdd, CauseInitialStock, CauseOrderRelease:
		return delta > 0
	case CauseOrderFulfill, CauseOrderReserve:
		return delta < 0
	case CauseManualAdjust:
		return true
	}
	return false
}

// MovementEntry registro inmutable del ledger. StockAfter = StockBefore + Delta y nunca es negativo.
type MovementEntry struct {
	ID            int64 // monotónico, consistente con el orden de commit por (variante, bodega)
	VariantID     string
	WarehouseID   string
	Delta         int64 // positivo entrada, negativo salida
	StockBefore   int64
	StockAfter    int64
	Cause         MovementCause
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Note          string
	CreatedAt     time.Time
}

// Key devuelve la llave de la StockRecord afectada.
func (m *MovementEntry) Key() StockKey {
	return StockKey{VariantID: m.VariantID, WarehouseID: m.WarehouseID}
}

// Consistent verifica el invariante aritmético del registro.
func (m *MovementEntry) Consistent() bool {
	return m.StockAfter == m.StockBefore+m.Delta && m.StockAfter >= 0
}
