package engine

import (
	"github.com/alejandrodnm/updownbot/internal/domain"
)

// BuildOpportunities emite una compra límite por cada token con cotización
// de un mercado operable. El precio es siempre limitPrice; el bid observado
// solo se guarda para diagnóstico. Orden: assets BTC, ETH, SOL, XRP y dentro
// de cada uno Up antes que Down, sea cual sea el orden que devuelve Gamma.
func BuildOpportunities(snap domain.MarketSnapshot, limitPrice float64) []domain.BuyOpportunity {
	var opps []domain.BuyOpportunity
	for _, asset := range domain.Assets() {
		as, ok := snap.Assets[asset]
		if !ok || !as.Market.Tradable() {
			continue
		}
		for _, outcome := range []domain.Outcome{domain.OutcomeUp, domain.OutcomeDown} {
			tok, ok := as.Market.TokenFor(outcome)
			if !ok {
				continue
			}
			q, ok := as.Quotes[tok.TokenID]
			if !ok {
				continue
			}
			opps = append(opps, domain.BuyOpportunity{
				TokenID:     tok.TokenID,
				ConditionID: as.Market.ConditionID,
				TokenType:   domain.TokenType{Asset: asset, Outcome: outcome},
				Price:       limitPrice,
				Bid:         q.BestBid,
				Period:      snap.Period,
				Elapsed:     snap.Elapsed,
				Remaining:   snap.Remaining,
				Kind:        domain.OrderKindLimit,
				NegRisk:     as.Market.NegRisk,
			})
		}
	}
	return opps
}
