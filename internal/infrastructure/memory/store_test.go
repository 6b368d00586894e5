package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
)

func newRecord(variantID, warehouseID string, qty int64) *entity.StockRecord {
	return &entity.StockRecord{VariantID: variantID, WarehouseID: warehouseID, Quantity: qty, AverageCostPrice: decimal.Zero}
}

func TestStore_RollbackDescartaCambios(t *testing.T) {
	s := memory.NewStore()
	v, w := uuid.NewString(), uuid.NewString()
	created, err := s.StockRecords().Create(context.Background(), newRecord(v, w, 0))
	require.NoError(t, err)
	require.True(t, created)

	boom := errors.New("falla en medio")
	err = s.Run(context.Background(), func(stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository) error {
		rec, err := stockRepo.GetForUpdate(context.Background(), v, w)
		require.NoError(t, err)
		rec.Quantity = 5
		require.NoError(t, stockRepo.Update(context.Background(), rec))
		require.NoError(t, movRepo.Append(context.Background(), &entity.MovementEntry{
			VariantID: v, WarehouseID: w, Delta: 5, StockBefore: 0, StockAfter: 5, Cause: entity.CauseManualAdd,
		}))

		// Dentro de la tx se ven los cambios propios.
		inTx, _ := stockRepo.Get(context.Background(), v, w)
		assert.Equal(t, int64(5), inTx.Quantity)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, _ := s.StockRecords().Get(context.Background(), v, w)
	assert.Zero(t, rec.Quantity)
	n, _ := s.Movements().Count(context.Background(), repository.MovementFilter{})
	assert.Zero(t, n)
}

func TestStore_RechazaMovimientoInconsistente(t *testing.T) {
	s := memory.NewStore()
	v, w := uuid.NewString(), uuid.NewString()
	_, err := s.StockRecords().Create(context.Background(), newRecord(v, w, 0))
	require.NoError(t, err)

	err = s.Movements().Append(context.Background(), &entity.MovementEntry{VariantID: v, WarehouseID: w, Delta: 3, StockBefore: 0, StockAfter: 4})
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)

	err = s.Movements().Append(context.Background(), &entity.MovementEntry{VariantID: uuid.NewString(), WarehouseID: w, Delta: 1, StockAfter: 1})
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation, "la pareja debe tener stock_record")
}

func TestStore_EsperaDelCandadoRespetaContexto(t *testing.T) {
	s := memory.NewStore()
	held, release := make(chan struct{}), make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(repository.StockRecordRepository, repository.MovementRepository) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(repository.StockRecordRepository, repository.MovementRepository) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTransientStore)
}

func TestCatalog_RequiereRegistroYStock(t *testing.T) {
	s := memory.NewStore()
	v, w := uuid.NewString(), uuid.NewString()
	ctx := context.Background()

	_, err := s.StockRecords().Create(ctx, newRecord(v, w, 1))
	require.NoError(t, err)
	st, err := s.Catalog().VariantExists(ctx, v, w)
	require.NoError(t, err)
	assert.False(t, st.Exists, "con stock pero sin catálogo la variante no existe")

	s.RegisterVariant(v, uuid.NewString(), true)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.False(t, st.Exists, "falta registrar la bodega")

	s.RegisterWarehouse(w, true)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.True(t, st.Exists)
	assert.True(t, st.Active)

	other := uuid.NewString()
	s.RegisterWarehouse(other, true)
	st, _ = s.Catalog().VariantExists(ctx, v, other)
	assert.False(t, st.Exists, "sin stock_record en la bodega la variante no existe")

	s.RegisterWarehouse(w, false)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.False(t, st.Active, "bodega inactiva")

	s.RegisterWarehouse(w, true)
	s.RegisterVariant(v, uuid.NewString(), false)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.False(t, st.Active, "variante inactiva")
}

func TestCatalog_AbiertoAceptaNoRegistradas(t *testing.T) {
	s := memory.NewStore()
	s.OpenCatalog()
	v, w := uuid.NewString(), uuid.NewString()
	ctx := context.Background()

	st, _ := s.Catalog().VariantExists(ctx, v, w)
	assert.False(t, st.Exists, "aún exige stock_record")

	_, err := s.StockRecords().Create(ctx, newRecord(v, w, 1))
	require.NoError(t, err)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.True(t, st.Exists)
	assert.True(t, st.Active)

	s.RegisterVariant(v, uuid.NewString(), false)
	st, _ = s.Catalog().VariantExists(ctx, v, w)
	assert.False(t, st.Active)
}
