package inventory

import "github.com/jhoicas/stock-ledger-api/internal/domain/entity"

// LedgerFold acumula movimientos en orden de creación partiendo de cero.
// Además de la suma, detecta rupturas de la cadena: StockBefore distinto del
// StockAfter anterior o un registro aritméticamente inconsistente.
type LedgerFold struct {
	Quantity    int64
	Entries     int64
	ChainBreaks int64
	lastAfter   int64
	lastID      int64
}

// Add incorpora el siguiente movimiento de la pareja.
func (f *LedgerFold) Add(m *entity.MovementEntry) {
	if m.StockBefore != f.lastAfter || !m.Consistent() || (f.Entries > 0 && m.ID <= f.lastID) {
		f.ChainBreaks++
	}
	f.Quantity += m.Delta
	f.lastAfter = m.StockAfter
	f.lastID = m.ID
	f.Entries++
}

// Matches compara la suma con la cantidad almacenada y exige una cadena íntegra.
func (f *LedgerFold) Matches(stored int64) bool {
	return f.Quantity == stored && f.ChainBreaks == 0
}
