package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sizing fija el tamaño de cada orden: Shares si es > 0, si no Amount/price.
type Sizing struct {
	Shares float64 // shares por orden
	Amount float64 // USDC por orden
}

// Size devuelve el número de shares a comprar a price.
func (s Sizing) Size(price float64) (decimal.Decimal, error) {
	if s.Shares > 0 {
		return decimal.NewFromFloat(s.Shares), nil
	}
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("engine.Size: invalid price %v", price)
	}
	if s.Amount <= 0 {
		return decimal.Zero, fmt.Errorf("engine.Size: no shares or amount configured")
	}
	return decimal.NewFromFloat(s.Amount).Div(decimal.NewFromFloat(price)), nil
}
