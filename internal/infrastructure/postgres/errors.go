package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
)

// Códigos SQLSTATE que el motor distingue.
const (
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeCheckViolation       = "23514"
	codeUniqueViolation      = "23505"
	codeInvalidTextRep       = "22P02"
	codeRaiseException       = "P0001"
)

// mapError traduce errores de pgx a errores de dominio, conservando el original en el mensaje.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTransientStore, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeLockNotAvailable, pgErr.Code == codeQueryCanceled:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrTransientStore, pgErr.Message)
		case pgErr.Code == codeSerializationFailure, pgErr.Code == codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConcurrencyConflict, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%s: %w: %s", op, domain.ErrTransientStore, pgErr.Message)
		case pgErr.Code == codeCheckViolation, pgErr.Code == codeRaiseException:
			// Un CHECK de cantidades o el trigger del ledger: el motor nunca debería llegar aquí.
			return fmt.Errorf("%s: %w: %s (%s)", op, domain.ErrIntegrityViolation, pgErr.Message, pgErr.ConstraintName)
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrDuplicate, pgErr.ConstraintName)
		case pgErr.Code == codeInvalidTextRep:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.Message)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTransientStore, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
