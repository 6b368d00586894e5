package fulfillment

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// OrderTxRunner abre una transacción que cubre stock, ledger y pedidos.
// Commit si fn retorna nil; cualquier error (o panic) hace Rollback completo.
type OrderTxRunner interface {
	RunOrder(ctx context.Context, fn func(
		stockRepo repository.StockRecordRepository,
		movRepo repository.MovementRepository,
		orderRepo repository.OrderRepository,
	) error) error
}

// StockMutator subconjunto del mutador que usa el coordinador.
type StockMutator interface {
	MutateInTx(ctx context.Context, stockRepo repository.StockRecordRepository, movRepo repository.MovementRepository, in inventory.MutationInput) (*inventory.MutationResult, error)
	NotifyLowStock(ctx context.Context, results ...*inventory.MutationResult)
}

var _ StockMutator = (*inventory.StockMutator)(nil)
