package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Inventario-medico/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"serialización", &pgconn.PgError{Code: "40001"}, domain.ErrConflict},
		{"interbloqueo", &pgconn.PgError{Code: "40P01"}, domain.ErrConflict},
		{"lock no disponible", &pgconn.PgError{Code: "55P03"}, domain.ErrConflict},
		{"clave de idempotencia", &pgconn.PgError{Code: "23505", ConstraintName: idempotencyIndex}, domain.ErrConflict},
		{"sku duplicado", &pgconn.PgError{Code: "23505", ConstraintName: "inventory_items_sku_uq"}, domain.ErrDuplicate},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrInvalidInput},
		{"conexión", &pgconn.PgError{Code: "08006"}, domain.ErrStorageUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.ErrStorageUnavailable},
		{"demasiadas conexiones", &pgconn.PgError{Code: "53300"}, domain.ErrStorageUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("op", tc.err)
			assert.ErrorIs(t, got, tc.want)
			var pgErr *pgconn.PgError
			assert.ErrorAs(t, got, &pgErr, "el error original se conserva")
		})
	}
}

func TestClassify_ContextoYDesconocidos(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	got := classify("op", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.False(t, errors.Is(got, domain.ErrStorageUnavailable))

	other := errors.New("sintaxis")
	got = classify("op", other)
	assert.ErrorIs(t, got, other)
	assert.False(t, domain.IsBusinessError(got))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "k", *nullIfEmpty("k"))
}
