package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// StockFilter filtros de GET stock.levels.
type StockFilter struct {
	WarehouseID       string
	LowStockThreshold *int64 // quantity <= umbral
	LowStockOnly      bool   // quantity <= minimum_stock
	Limit             int
	Offset            int
}

// StockRecordRepository define el puerto para la tabla de stock actual por (variante, bodega).
// Las escrituras solo las hace el StockMutator dentro de una transacción.
type StockRecordRepository interface {
	// Create inserta la fila si no existe; devuelve false si ya existía.
	Create(ctx context.Context, record *entity.StockRecord) (bool, error)
	Get(ctx context.Context, variantID, warehouseID string) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, variantID, warehouseID string) (*entity.StockRecord, error)
	Update(ctx context.Context, record *entity.StockRecord) error
	List(ctx context.Context, filter StockFilter) ([]*entity.StockRecord, error)
	ListKeys(ctx context.Context) ([]entity.StockKey, error)
}
