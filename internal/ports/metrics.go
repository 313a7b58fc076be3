package ports

import "github.com/alejandrodnm/updownbot/internal/domain"

// Metrics recibe los eventos del bucle de despacho.
type Metrics interface {
	Tick(outcome string)
	Order(mode, result string)
	QuoteFailure(asset domain.Asset)
	Period(period int64)
}
