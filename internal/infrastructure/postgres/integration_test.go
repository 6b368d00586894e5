package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
)

// Requiere una base PostgreSQL desechable: TEST_DATABASE_URL=postgres://... go test ./...
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

type pgEnv struct {
	pool    *pgxpool.Pool
	tx      *postgres.TxRunner
	catalog *postgres.CatalogRepo
	mutator *inventory.StockMutator
	coord   *fulfillment.Coordinator
	wh      string
}

func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()
	pool := openPool(t)
	txRunner := postgres.NewTxRunner(pool, 2*time.Second)
	catalog := postgres.NewCatalogRepository(pool)
	mutator := inventory.NewStockMutator(txRunner, nil, zerolog.Nop(), inventory.MutatorConfig{MaxConflictRetries: 3})
	e := &pgEnv{
		pool:    pool,
		tx:      txRunner,
		catalog: catalog,
		mutator: mutator,
		coord:   fulfillment.NewCoordinator(txRunner, mutator, catalog, zerolog.Nop(), fulfillment.Config{TxTimeout: 5 * time.Second, MaxTxRetries: 3}),
		wh:      uuid.NewString(),
	}
	require.NoError(t, catalog.UpsertWarehouse(context.Background(), e.wh, "Bodega test "+e.wh[:8]))
	return e
}

func (e *pgEnv) variant(t *testing.T, qty int64) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, e.catalog.UpsertVariant(ctx, id, uuid.NewString(), "SKU-"+id[:8], true))
	_, err := e.mutator.InitializeStock(ctx, inventory.InitializeInput{VariantID: id, WarehouseID: e.wh, Quantity: qty})
	require.NoError(t, err)
	return id
}

func (e *pgEnv) quantity(t *testing.T, variantID string) int64 {
	t.Helper()
	rec, err := postgres.NewStockRecordRepository(e.pool).Get(context.Background(), variantID, e.wh)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec.Quantity
}

func TestPostgres_MutacionesConcurrentesSinSobreventa(t *testing.T) {
	e := newPgEnv(t)
	v := e.variant(t, 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.mutator.Mutate(context.Background(), inventory.MutationInput{
				VariantID: v, WarehouseID: e.wh, Delta: -1, Cause: entity.CauseManualAdjust,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Zero(t, e.quantity(t, v))

	res, err := inventory.NewReconciler(postgres.NewStockRecordRepository(e.pool), postgres.NewMovementRepository(e.pool), nil, zerolog.Nop(), 2).
		Reconcile(context.Background(), v, e.wh)
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, int64(11), res.EntryCount)
}

func TestPostgres_PedidoAtomicoYCancelacion(t *testing.T) {
	e := newPgEnv(t)
	a, b := e.variant(t, 5), e.variant(t, 1)
	ctx := context.Background()
	actor := uuid.NewString()

	_, err := e.coord.PlaceOrder(ctx, actor, fulfillment.PlaceOrderInput{Lines: []fulfillment.PlaceOrderLine{
		{VariantID: a, WarehouseID: e.wh, Quantity: 2, Price: decimal.NewFromInt(10)},
		{VariantID: b, WarehouseID: e.wh, Quantity: 2, Price: decimal.NewFromInt(10)},
	}})
	var lineErr *domain.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 1, lineErr.Line)
	assert.Equal(t, int64(5), e.quantity(t, a))

	order, err := e.coord.PlaceOrder(ctx, actor, fulfillment.PlaceOrderInput{Lines: []fulfillment.PlaceOrderLine{
		{VariantID: b, WarehouseID: e.wh, Quantity: 1, Price: decimal.RequireFromString("19.99")},
		{VariantID: a, WarehouseID: e.wh, Quantity: 2, Price: decimal.NewFromInt(10)},
	}})
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("39.99")))
	assert.Equal(t, int64(3), e.quantity(t, a))
	assert.Zero(t, e.quantity(t, b))

	stored, err := e.coord.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, 0, stored.Lines[0].LineNo)

	_, err = e.coord.CancelOrder(ctx, actor, order.ID)
	require.NoError(t, err)
	_, err = e.coord.CancelOrder(ctx, actor, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int64(5), e.quantity(t, a))
	assert.Equal(t, int64(1), e.quantity(t, b))
}

func TestPostgres_LedgerInmutable(t *testing.T) {
	e := newPgEnv(t)
	v := e.variant(t, 3)

	_, err := e.pool.Exec(context.Background(), `UPDATE stock_movements SET delta = 100 WHERE variant_id = $1`, v)
	require.Error(t, err, "el trigger rechaza modificaciones al ledger")
	_, err = e.pool.Exec(context.Background(), `DELETE FROM stock_movements WHERE variant_id = $1`, v)
	require.Error(t, err)
}

func TestPostgres_ConsultaYReporte(t *testing.T) {
	e := newPgEnv(t)
	v := e.variant(t, 10)
	ctx := context.Background()
	_, err := e.mutator.Mutate(ctx, inventory.MutationInput{VariantID: v, WarehouseID: e.wh, Delta: -3, Cause: entity.CauseManualAdjust})
	require.NoError(t, err)
	_, err = e.mutator.Mutate(ctx, inventory.MutationInput{VariantID: v, WarehouseID: e.wh, Delta: 1, Cause: entity.CauseManualAdd})
	require.NoError(t, err)

	q := inventory.NewQueryUseCase(postgres.NewStockRecordRepository(e.pool), postgres.NewMovementRepository(e.pool))
	page, err := q.QueryLedger(ctx, dto.LedgerQueryRequest{VariantID: v})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "manual_add", page.Items[0].Cause)

	today := time.Now().UTC().Format("2006-01-02")
	sum, err := report.NewAggregator(postgres.NewReportRepository(e.pool)).Summarize(ctx, dto.SummaryRequest{
		StartDate: today, EndDate: today, GroupBy: "warehouse", WarehouseID: e.wh,
	})
	require.NoError(t, err)
	require.Len(t, sum.Rows, 1)
	assert.Equal(t, int64(11), sum.Rows[0].TotalIn)
	assert.Equal(t, int64(3), sum.Rows[0].TotalOut)
	assert.Equal(t, int64(8), sum.Rows[0].Net)
	assert.Equal(t, int64(14), sum.Rows[0].Volume)
}
