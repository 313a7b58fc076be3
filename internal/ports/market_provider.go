package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// MarketLookup resuelve mercados por slug contra Gamma.
type MarketLookup interface {
	// GetMarketBySlug devuelve el mercado con ese slug exacto.
	// Si no existe, el error envuelve domain.ErrMarketNotFound.
	GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error)
}
