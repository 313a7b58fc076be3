package domain

import "time"

// DispatchResult es el resultado de intentar una oportunidad en un pase de despacho.
// Position es nil si la orden falló o se omitió.
type DispatchResult struct {
	Opportunity BuyOpportunity
	Position    *Position
	Err         error
	Skipped     bool // ya había posición activa para (periodo, tipo)
}

// MarketStart registra qué mercado se usó para un asset en un periodo.
type MarketStart struct {
	Period      int64
	Asset       Asset
	ConditionID string
	Slug        string
	Placeholder bool
	ResolvedAt  time.Time
}
