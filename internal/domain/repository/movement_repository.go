package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// MovementFilter filtros de GET ledger.query. Campos vacíos no filtran.
type MovementFilter struct {
	VariantID     string
	WarehouseID   string
	Cause         entity.MovementCause
	ReferenceType string
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// MovementRepository puerto del ledger de movimientos. Solo agrega; no existe Update ni Delete.
type MovementRepository interface {
	// Append persiste el movimiento y asigna ID y CreatedAt.
	Append(ctx context.Context, entry *entity.MovementEntry) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.MovementEntry, error)
	Count(ctx context.Context, filter MovementFilter) (int, error)
	// ForEachByPair recorre los movimientos de la pareja en orden de creación (ID ascendente).
	ForEachByPair(ctx context.Context, variantID, warehouseID string, fn func(*entity.MovementEntry) error) error
}
