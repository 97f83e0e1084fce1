package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-medico/internal/domain"
)

func TestInsufficientStockError(t *testing.T) {
	err := fmt.Errorf("dispensar: %w", &domain.InsufficientStockError{ItemID: "amox-500", Available: 2, Requested: 5})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Shortfall())
	assert.Contains(t, ise.Error(), "amox-500")
}

func TestIsBusinessError(t *testing.T) {
	business := []error{
		domain.ErrInvalidQuantity,
		domain.ErrItemNotFound,
		&domain.InsufficientStockError{},
		domain.ErrIdempotencyMismatch,
		domain.ErrOrderAlreadyReceived,
		fmt.Errorf("envuelto: %w", domain.ErrInvalidInput),
	}
	for _, err := range business {
		assert.True(t, domain.IsBusinessError(err), err.Error())
	}

	transient := []error{
		domain.ErrConflict,
		domain.ErrStorageUnavailable,
		context.DeadlineExceeded,
		errors.New("otro"),
	}
	for _, err := range transient {
		assert.False(t, domain.IsBusinessError(err), err.Error())
	}
}
