package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Notifier presenta el resultado de cada pase de despacho al usuario.
type Notifier interface {
	// NotifyDispatch muestra las órdenes intentadas en el periodo.
	// En la implementación de consola, imprime una tabla formateada.
	NotifyDispatch(ctx context.Context, period int64, results []domain.DispatchResult) error
}
