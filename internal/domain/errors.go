package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	ErrTransientStore      = errors.New("falla transitoria del almacenamiento")
	ErrIntegrityViolation  = errors.New("violación de integridad del ledger")
	ErrInvalidState        = errors.New("transición de estado inválida")
)

// ValidationError entrada mal formada; Line es -1 cuando no aplica a una línea de pedido.
type ValidationError struct {
	Field  string
	Line   int
	Reason string
}

// NewValidationError construye un error de validación sin línea asociada.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Line: -1, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("línea %d: %s: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError detalla el faltante de una mutación rechazada.
// Available es lo que podía descontarse (quantity - reserved_quantity) al momento del bloqueo.
type InsufficientStockError struct {
	VariantID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para variante %s en bodega %s: solicitado %d, disponible %d",
		e.VariantID, e.WarehouseID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// LineError asocia un error a la línea del pedido que lo produjo (índice en la petición original).
type LineError struct {
	Line        int
	VariantID   string
	WarehouseID string
	Err         error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("línea %d (variante %s, bodega %s): %v", e.Line, e.VariantID, e.WarehouseID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// InvalidStateError transición de pedido no permitida desde el estado actual.
type InvalidStateError struct {
	OrderID string
	From    string
	To      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("pedido %s: no se puede pasar de %q a %q", e.OrderID, e.From, e.To)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// IsRetryable indica si el llamador puede repetir la operación completa desde cero.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore) || errors.Is(err, ErrConcurrencyConflict)
}
