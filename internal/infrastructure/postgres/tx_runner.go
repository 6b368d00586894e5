package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner        = (*TxRunner)(nil)
	_ fulfillment.OrderTxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED + SELECT FOR UPDATE).
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout acota la espera por filas bloqueadas (0 = sin límite).
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockRecordRepository(tx), NewMovementRepository(tx))
	})
}

// RunOrder inicia una transacción con repos de stock, ledger y pedidos (PlaceOrder, CancelOrder).
func (r *TxRunner) RunOrder(ctx context.Context, fn func(
	stockRepo repository.StockRecordRepository,
	movRepo repository.MovementRepository,
	orderRepo repository.OrderRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockRecordRepository(tx), NewMovementRepository(tx), NewOrderRepository(tx))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		// SET no acepta parámetros ($1); el valor sale de configuración, no del cliente.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError("set lock_timeout", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}
