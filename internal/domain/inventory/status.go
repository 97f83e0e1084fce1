// Package inventory contiene los servicios de dominio puros del inventario.
package inventory

import (
	"time"

	"github.com/jhoicas/Inventario-medico/internal/domain/entity"
)

// DeriveStatus calcula el estado de un artículo a partir de su saldo, umbral de reorden y caducidad.
// Es una función pura: mismo (cantidad, umbral, caducidad, hoy) => mismo estado.
//
//	cantidad == 0            -> depleted
//	caducidad antes de hoy   -> expired (prevalece sobre el estado por cantidad)
//	cantidad <= umbral       -> low_stock
//	resto                    -> available
func DeriveStatus(quantity, threshold int64, expiry *time.Time, today time.Time) entity.ItemStatus {
	switch {
	case quantity == 0:
		return entity.ItemStatusDepleted
	case IsExpired(expiry, today):
		return entity.ItemStatusExpired
	case quantity <= threshold:
		return entity.ItemStatusLowStock
	default:
		return entity.ItemStatusAvailable
	}
}

// IsExpired compara por fecha calendario: un artículo que caduca hoy sigue vigente hasta mañana.
func IsExpired(expiry *time.Time, today time.Time) bool {
	if expiry == nil {
		return false
	}
	return dateOf(*expiry).Before(dateOf(today))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
