package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Session establishes an authenticated trading session with the CLOB.
type Session interface {
	// Authenticate derives or loads API credentials. Safe to call repeatedly;
	// credentials are cached after the first success.
	Authenticate(ctx context.Context) error
}

// OrderSubmitter signs and submits orders to the CLOB.
type OrderSubmitter interface {
	// PlaceOrder signs and submits a limit order. A nil error means the CLOB
	// acknowledged the order with an id.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)
}
