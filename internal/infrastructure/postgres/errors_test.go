package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
)

func TestMapError_CodigosSQLSTATE(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{codeLockNotAvailable, domain.ErrTransientStore},
		{codeQueryCanceled, domain.ErrTransientStore},
		{"08006", domain.ErrTransientStore},
		{codeSerializationFailure, domain.ErrConcurrencyConflict},
		{codeDeadlockDetected, domain.ErrConcurrencyConflict},
		{codeCheckViolation, domain.ErrIntegrityViolation},
		{codeRaiseException, domain.ErrIntegrityViolation},
		{codeUniqueViolation, domain.ErrDuplicate},
		{codeInvalidTextRep, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		err := mapError("op", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: tc.code, Message: "x"}))
		assert.ErrorIs(t, err, tc.want, "SQLSTATE %s", tc.code)
	}
}

func TestMapError_ContextoYOtros(t *testing.T) {
	assert.Nil(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", context.DeadlineExceeded), domain.ErrTransientStore)
	assert.ErrorIs(t, mapError("op", context.Canceled), domain.ErrTransientStore)

	other := errors.New("otra cosa")
	err := mapError("op", other)
	assert.ErrorIs(t, err, other)
	assert.False(t, domain.IsRetryable(err))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/stock", RedactDSN("postgres://app:secreto@db:5432/stock"))
	assert.Equal(t, "host=db user=app", RedactDSN("host=db user=app"))
}
