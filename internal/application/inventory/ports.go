package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: Commit si fn retorna nil, Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRecordRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// AlertSink destino de alertas (stock bajo, integridad). Un error al notificar solo se registra.
type AlertSink interface {
	Notify(ctx context.Context, alert entity.Alert) error
}
