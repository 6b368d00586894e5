package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

func mov(id, before, delta int64) *entity.MovementEntry {
	return &entity.MovementEntry{ID: id, StockBefore: before, Delta: delta, StockAfter: before + delta}
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerFold
// ──────────────────────────────────────────────────────────────────────────────

func TestLedgerFold_CadenaIntegra(t *testing.T) {
	var f inventory.LedgerFold
	f.Add(mov(1, 0, 10))
	f.Add(mov(2, 10, -3))
	f.Add(mov(5, 7, 1))

	assert.Equal(t, int64(8), f.Quantity)
	assert.Equal(t, int64(3), f.Entries)
	assert.Zero(t, f.ChainBreaks)
	assert.True(t, f.Matches(8))
	assert.False(t, f.Matches(9), "la cantidad almacenada difiere de la suma")
}

func TestLedgerFold_DetectaRupturas(t *testing.T) {
	t.Run("stock_before no encadena", func(t *testing.T) {
		var f inventory.LedgerFold
		f.Add(mov(1, 0, 10))
		f.Add(mov(2, 9, -3))
		assert.Equal(t, int64(1), f.ChainBreaks)
		assert.False(t, f.Matches(7))
	})

	t.Run("registro inconsistente", func(t *testing.T) {
		var f inventory.LedgerFold
		f.Add(&entity.MovementEntry{ID: 1, StockBefore: 0, Delta: 5, StockAfter: 4})
		assert.Equal(t, int64(1), f.ChainBreaks)
	})

	t.Run("ids fuera de orden", func(t *testing.T) {
		var f inventory.LedgerFold
		f.Add(mov(4, 0, 10))
		f.Add(mov(3, 10, 1))
		assert.Equal(t, int64(1), f.ChainBreaks)
	})
}

func TestLedgerFold_SinMovimientos(t *testing.T) {
	var f inventory.LedgerFold
	assert.True(t, f.Matches(0))
	assert.False(t, f.Matches(1))
}

// ──────────────────────────────────────────────────────────────────────────────
// CostCalculator
// ──────────────────────────────────────────────────────────────────────────────

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	// (10*100 + 30*200) / 40 = 175
	got := inventory.CostCalculator(10, decimal.NewFromInt(100), 30, decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(175)), "got %s", got)
}

func TestCostCalculator_StockCeroTomaCostoEntrada(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.Zero, 5, decimal.RequireFromString("12.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")), "got %s", got)
}

func TestCostCalculator_SumaCero(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.NewFromInt(10), 0, decimal.NewFromInt(10))
	assert.True(t, got.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Agregación
// ──────────────────────────────────────────────────────────────────────────────

func TestSummaryAccumulator_EntradasSalidas(t *testing.T) {
	acc := inventory.NewSummaryAccumulator()
	acc.Add("a", 10)
	acc.Add("a", -3)
	acc.Add("a", 1)
	acc.Add("b", -2)

	rows := acc.Rows()
	assert.Len(t, rows, 2)
	assert.Equal(t, repository.MovementSummaryRow{Key: "a", MovementCount: 3, TotalIn: 11, TotalOut: 3, Net: 8, Volume: 14}, rows[0])
	assert.Equal(t, "b", rows[1].Key)
	assert.Equal(t, int64(-2), rows[1].Net)
	assert.Equal(t, int64(2), rows[1].TotalOut)
}

func TestGroupKey(t *testing.T) {
	m := &entity.MovementEntry{
		VariantID:   "v1",
		WarehouseID: "w1",
		Cause:       entity.CauseManualAdd,
		CreatedAt:   time.Date(2025, 3, 1, 23, 30, 0, 0, time.FixedZone("COT", -5*3600)),
	}
	products := map[string]string{"v1": "p1"}
	productOf := func(v string) string { return products[v] }

	assert.Equal(t, "manual_add", inventory.GroupKey(m, repository.GroupByType, productOf))
	assert.Equal(t, "w1", inventory.GroupKey(m, repository.GroupByWarehouse, productOf))
	assert.Equal(t, "2025-03-02", inventory.GroupKey(m, repository.GroupByDay, productOf), "el día se calcula en UTC")
	assert.Equal(t, "p1", inventory.GroupKey(m, repository.GroupByProduct, productOf))

	m.VariantID = "sin-producto"
	assert.Equal(t, "sin-producto", inventory.GroupKey(m, repository.GroupByProduct, productOf))
}
