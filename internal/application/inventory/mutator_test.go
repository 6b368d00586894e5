package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

// recordingSink guarda las alertas recibidas.
type recordingSink struct {
	mu     sync.Mutex
	alerts []entity.Alert
}

func (s *recordingSink) Notify(_ context.Context, a entity.Alert) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) byType(t string) []entity.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Alert
	for _, a := range s.alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

type fixture struct {
	store   *memory.Store
	sink    *recordingSink
	alerts  *inventory.AlertDispatcher
	mutator *inventory.StockMutator
	variant string
	wh      string
	actorID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sink := &recordingSink{}
	alerts := inventory.NewAlertDispatcher(sink, zerolog.Nop())
	f := &fixture{
		store:   store,
		sink:    sink,
		alerts:  alerts,
		mutator: inventory.NewStockMutator(store, alerts, zerolog.Nop(), inventory.MutatorConfig{MaxConflictRetries: 2}),
		variant: uuid.NewString(),
		wh:      uuid.NewString(),
		actorID: uuid.NewString(),
	}
	store.RegisterVariant(f.variant, uuid.NewString(), true)
	return f
}

func (f *fixture) seed(t *testing.T, qty, minimum int64) {
	t.Helper()
	_, err := f.mutator.InitializeStock(context.Background(), inventory.InitializeInput{
		VariantID:    f.variant,
		WarehouseID:  f.wh,
		Quantity:     qty,
		MinimumStock: minimum,
		ActorID:      f.actorID,
	})
	require.NoError(t, err)
}

func (f *fixture) input(delta int64, cause entity.MovementCause) inventory.MutationInput {
	return inventory.MutationInput{
		VariantID:     f.variant,
		WarehouseID:   f.wh,
		Delta:         delta,
		Cause:         cause,
		ReferenceType: entity.ReferenceManual,
		ActorID:       f.actorID,
	}
}

func (f *fixture) ledger(t *testing.T) []*entity.MovementEntry {
	t.Helper()
	var out []*entity.MovementEntry
	err := f.store.Movements().ForEachByPair(context.Background(), f.variant, f.wh, func(m *entity.MovementEntry) error {
		out = append(out, m)
		return nil
	})
	require.NoError(t, err)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutate
// ──────────────────────────────────────────────────────────────────────────────

func TestMutate_RegistraMovimientoYActualizaStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0)

	res, err := f.mutator.Mutate(context.Background(), f.input(-3, entity.CauseManualAdjust))
	require.NoError(t, err)

	assert.Equal(t, int64(10), res.Entry.StockBefore)
	assert.Equal(t, int64(7), res.Entry.StockAfter)
	assert.Equal(t, int64(-3), res.Entry.Delta)
	assert.Equal(t, int64(7), res.Record.Quantity)

	rec, err := f.store.StockRecords().Get(context.Background(), f.variant, f.wh)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Quantity)

	entries := f.ledger(t)
	require.Len(t, entries, 2, "initial_stock + ajuste")
	assert.Equal(t, entity.CauseInitialStock, entries[0].Cause)
	assert.Less(t, entries[0].ID, entries[1].ID)
}

func TestMutate_StockInsuficiente_NoTocaNada(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2, 0)

	_, err := f.mutator.Mutate(context.Background(), f.input(-3, entity.CauseManualAdjust))
	require.Error(t, err)

	var insuf *domain.InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	assert.Equal(t, int64(3), insuf.Requested)
	assert.Equal(t, int64(2), insuf.Available)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	rec, _ := f.store.StockRecords().Get(context.Background(), f.variant, f.wh)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.Len(t, f.ledger(t), 1)
}

func TestMutate_DescontarHastaCero(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 4, 0)

	res, err := f.mutator.Mutate(context.Background(), f.input(-4, entity.CauseManualAdjust))
	require.NoError(t, err)
	assert.Zero(t, res.Record.Quantity)
}

func TestMutate_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 5, 0)

	cases := map[string]inventory.MutationInput{
		"delta cero":          f.input(0, entity.CauseManualAdjust),
		"causa desconocida":   f.input(1, entity.MovementCause("robo")),
		"manual_add negativo": f.input(-1, entity.CauseManualAdd),
		"fulfill positivo":    f.input(1, entity.CauseOrderFulfill),
		"variante no uuid": func() inventory.MutationInput {
			in := f.input(1, entity.CauseManualAdd)
			in.VariantID = "abc"
			return in
		}(),
		"delta minimo int64":   f.input(math.MinInt64, entity.CauseManualAdjust),
		"desborde de cantidad": f.input(math.MaxInt64, entity.CauseManualAdd),
		"costo en salida": func() inventory.MutationInput {
			in := f.input(-1, entity.CauseManualAdjust)
			c := decimal.NewFromInt(5)
			in.UnitCost = &c
			return in
		}(),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.mutator.Mutate(context.Background(), in)
			require.Error(t, err)
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr), "se esperaba ValidationError, got %v", err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Len(t, f.ledger(t), 1, "ninguna validación fallida deja movimiento")
}

func TestMutate_ParejaInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.mutator.Mutate(context.Background(), f.input(1, entity.CauseManualAdd))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMutate_CostoPromedioEnEntrada(t *testing.T) {
	f := newFixture(t)
	cost := decimal.NewFromInt(100)
	_, err := f.mutator.InitializeStock(context.Background(), inventory.InitializeInput{
		VariantID: f.variant, WarehouseID: f.wh, Quantity: 10, UnitCost: &cost,
	})
	require.NoError(t, err)

	in := f.input(30, entity.CauseManualAdd)
	entry := decimal.NewFromInt(200)
	in.UnitCost = &entry
	res, err := f.mutator.Mutate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Record.AverageCostPrice.Equal(decimal.NewFromInt(175)), "got %s", res.Record.AverageCostPrice)
}

func TestMutate_AlertaStockBajo(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 5)

	res, err := f.mutator.Mutate(context.Background(), f.input(-4, entity.CauseManualAdjust))
	require.NoError(t, err)
	assert.False(t, res.LowStock)

	res, err = f.mutator.Mutate(context.Background(), f.input(-1, entity.CauseManualAdjust))
	require.NoError(t, err)
	assert.True(t, res.LowStock, "quedar en el mínimo es stock bajo")

	f.alerts.Wait()
	low := f.sink.byType(entity.AlertLowStock)
	require.Len(t, low, 1)
	assert.Equal(t, int64(5), low[0].Quantity)
	assert.Equal(t, res.Entry.ID, low[0].MovementID)
}

func TestMutate_Concurrente_SinSobreventa(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 5, 0)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.mutator.Mutate(context.Background(), f.input(-1, entity.CauseManualAdjust)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	rec, _ := f.store.StockRecords().Get(context.Background(), f.variant, f.wh)
	assert.Zero(t, rec.Quantity)

	entries := f.ledger(t)
	require.Len(t, entries, 6)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].StockAfter, entries[i].StockBefore, "la cadena del ledger no se rompe")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// InitializeStock / SetMinimumStock
// ──────────────────────────────────────────────────────────────────────────────

func TestInitializeStock_Duplicado(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 3, 0)

	_, err := f.mutator.InitializeStock(context.Background(), inventory.InitializeInput{
		VariantID: f.variant, WarehouseID: f.wh, Quantity: 9,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	rec, _ := f.store.StockRecords().Get(context.Background(), f.variant, f.wh)
	assert.Equal(t, int64(3), rec.Quantity)
	assert.Len(t, f.ledger(t), 1)
}

func TestInitializeStock_CantidadCeroSinMovimiento(t *testing.T) {
	f := newFixture(t)
	res, err := f.mutator.InitializeStock(context.Background(), inventory.InitializeInput{
		VariantID: f.variant, WarehouseID: f.wh,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Entry)
	assert.Empty(t, f.ledger(t))
}

func TestSetMinimumStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 8, 0)

	rec, err := f.mutator.SetMinimumStock(context.Background(), f.variant, f.wh, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.MinimumStock)
	assert.True(t, rec.IsLowStock())
	assert.Len(t, f.ledger(t), 1, "cambiar el umbral no genera movimiento")

	_, err = f.mutator.SetMinimumStock(context.Background(), f.variant, f.wh, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad ante fallas de commit
// ──────────────────────────────────────────────────────────────────────────────

func TestMutate_FallaDeCommit_NoPublicaNada(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0)

	f.store.SetBeforeCommit(func() error { return domain.ErrTransientStore })
	_, err := f.mutator.Mutate(context.Background(), f.input(-2, entity.CauseManualAdjust))
	f.store.SetBeforeCommit(nil)

	assert.ErrorIs(t, err, domain.ErrTransientStore)
	assert.True(t, domain.IsRetryable(err))
	rec, _ := f.store.StockRecords().Get(context.Background(), f.variant, f.wh)
	assert.Equal(t, int64(10), rec.Quantity)
	assert.Len(t, f.ledger(t), 1)
}

func TestMutate_ReintentaConflictos(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0)

	calls := 0
	f.store.SetBeforeCommit(func() error {
		calls++
		if calls == 1 {
			return domain.ErrConcurrencyConflict
		}
		return nil
	})
	defer f.store.SetBeforeCommit(nil)

	res, err := f.mutator.Mutate(context.Background(), f.input(-2, entity.CauseManualAdjust))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(8), res.Record.Quantity)
	assert.Len(t, f.ledger(t), 2, "el intento fallido no dejó rastro")
}
