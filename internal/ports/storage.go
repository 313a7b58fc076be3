package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Journal persiste las órdenes despachadas y los mercados de cada periodo.
// Los fallos del journal nunca bloquean el trading.
type Journal interface {
	SaveOrder(ctx context.Context, p domain.Position) error
	UpdateOrderStatus(ctx context.Context, positionID string, status domain.PositionStatus) error
	RecordMarketStart(ctx context.Context, starts []domain.MarketStart) error
}
