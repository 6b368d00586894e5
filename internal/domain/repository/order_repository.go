package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// OrderRepository puerto de persistencia de pedidos y sus líneas.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	CreateLine(ctx context.Context, line *entity.OrderLine) error
	// GetByID devuelve el pedido con sus líneas, o nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// GetForUpdate igual que GetByID pero bloquea la cabecera hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, at time.Time) error
}
