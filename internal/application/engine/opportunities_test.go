package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/application/engine"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

func market(condID string) domain.Market {
	return domain.Market{
		ConditionID: condID,
		Slug:        condID,
		Active:      true,
		Tokens: []domain.Token{
			{TokenID: condID + "_up", Outcome: "Up"},
			{TokenID: condID + "_down", Outcome: "Down"},
		},
	}
}

func quotes(bid float64, tokenIDs ...string) map[string]domain.Quote {
	out := make(map[string]domain.Quote, len(tokenIDs))
	for _, id := range tokenIDs {
		out[id] = domain.Quote{TokenID: id, BestBid: bid, BestAsk: bid + 0.02}
	}
	return out
}

func TestBuildOpportunities(t *testing.T) {
	snap := domain.MarketSnapshot{
		Period:    p0,
		Elapsed:   1,
		Remaining: 899,
		Assets: map[domain.Asset]domain.AssetSnapshot{
			domain.AssetETH: {Market: market("eth"), Quotes: quotes(0.40, "eth_up", "eth_down")},
			domain.AssetBTC: {Market: market("btc"), Quotes: quotes(0.51, "btc_up")},
			domain.AssetSOL: {Market: domain.PlaceholderMarket(domain.AssetSOL), Quotes: map[string]domain.Quote{}},
		},
	}

	opps := engine.BuildOpportunities(snap, 0.45)
	require.Len(t, opps, 3)

	// BTC primero; btc_down no tiene cotización.
	assert.Equal(t, "btc_up", opps[0].TokenID)
	assert.Equal(t, domain.TokenType{Asset: domain.AssetBTC, Outcome: domain.OutcomeUp}, opps[0].TokenType)
	assert.Equal(t, "eth_up", opps[1].TokenID)
	assert.Equal(t, "eth_down", opps[2].TokenID)
	assert.Equal(t, domain.OutcomeDown, opps[2].TokenType.Outcome)

	for _, o := range opps {
		assert.Equal(t, 0.45, o.Price, "el precio es siempre el límite configurado")
		assert.Equal(t, p0, o.Period)
		assert.Equal(t, int64(1), o.Elapsed)
		assert.Equal(t, domain.OrderKindLimit, o.Kind)
	}
	assert.InDelta(t, 0.51, opps[0].Bid, 1e-9)
}

func TestBuildOpportunities_SkipsUntradable(t *testing.T) {
	closed := market("btc")
	closed.Closed = true
	snap := domain.MarketSnapshot{
		Period: p0,
		Assets: map[domain.Asset]domain.AssetSnapshot{
			domain.AssetBTC: {Market: closed, Quotes: quotes(0.5, "btc_up", "btc_down")},
		},
	}
	assert.Empty(t, engine.BuildOpportunities(snap, 0.45))
}

func TestBuildOpportunities_UnknownOutcome(t *testing.T) {
	m := market("btc")
	m.Tokens = append(m.Tokens, domain.Token{TokenID: "btc_flat", Outcome: "Flat"})
	snap := domain.MarketSnapshot{
		Period: p0,
		Assets: map[domain.Asset]domain.AssetSnapshot{
			domain.AssetBTC: {Market: m, Quotes: quotes(0.5, "btc_up", "btc_down", "btc_flat")},
		},
	}
	assert.Len(t, engine.BuildOpportunities(snap, 0.45), 2)
}

func TestBuildOpportunities_UpBeforeDown(t *testing.T) {
	m := market("btc")
	m.Tokens = []domain.Token{
		{TokenID: "btc_down", Outcome: "DOWN"},
		{TokenID: "btc_up", Outcome: "up"},
	}
	snap := domain.MarketSnapshot{
		Period: p0,
		Assets: map[domain.Asset]domain.AssetSnapshot{
			domain.AssetBTC: {Market: m, Quotes: quotes(0.5, "btc_up", "btc_down")},
		},
	}

	opps := engine.BuildOpportunities(snap, 0.45)
	require.Len(t, opps, 2)
	assert.Equal(t, "btc_up", opps[0].TokenID)
	assert.Equal(t, domain.OutcomeUp, opps[0].TokenType.Outcome)
	assert.Equal(t, "btc_down", opps[1].TokenID)
	assert.Equal(t, domain.OutcomeDown, opps[1].TokenType.Outcome)
}
