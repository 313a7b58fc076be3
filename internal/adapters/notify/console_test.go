package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResult(asset domain.Asset, outcome domain.Outcome) domain.DispatchResult {
	return domain.DispatchResult{
		Opportunity: domain.BuyOpportunity{
			TokenID:   "tok_" + string(asset) + string(outcome),
			TokenType: domain.TokenType{Asset: asset, Outcome: outcome},
			Price:     0.45,
			Bid:       0.41,
			Period:    1760623200,
			Elapsed:   1,
			Kind:      domain.OrderKindLimit,
		},
	}
}

func TestConsole_NotifyDispatch_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	placed := makeResult(domain.AssetBTC, domain.OutcomeUp)
	placed.Position = &domain.Position{Size: 10, OrderID: "sim-1234", Status: domain.PositionSimulated}

	failed := makeResult(domain.AssetETH, domain.OutcomeDown)
	failed.Err = errors.New("place order: clob error: not enough balance")

	skipped := makeResult(domain.AssetSOL, domain.OutcomeUp)
	skipped.Skipped = true

	err := n.NotifyDispatch(context.Background(), 1760623200, []domain.DispatchResult{placed, failed, skipped})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "placed:1 skipped:1 failed:1")
	assert.Contains(t, out, "BTC-Up")
	assert.Contains(t, out, "ETH-Down")
	assert.Contains(t, out, "SIMULATED")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "SKIPPED")
	assert.Contains(t, out, "sim-1234")
	assert.Contains(t, out, "10.00")
	assert.Contains(t, out, "0.45")
}

func TestConsole_NotifyDispatch_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := makeResult(domain.AssetXRP, domain.OutcomeUp)
	r.Position = &domain.Position{Size: 10, Status: domain.PositionOpen}
	require.NoError(t, n.NotifyDispatch(context.Background(), 900, []domain.DispatchResult{r}))

	out := buf.String()
	assert.Contains(t, out, "placed:1")
	assert.Contains(t, out, "XRP-Up OPEN")
}

func TestConsole_NotifyDispatch_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.NotifyDispatch(context.Background(), 900, nil))
	assert.Contains(t, buf.String(), "no opportunities")
}

func TestConsole_PrintJournal(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	orders := []domain.Position{{
		ID:        "p1",
		TokenType: domain.TokenType{Asset: domain.AssetBTC, Outcome: domain.OutcomeDown},
		Period:    900,
		Price:     0.45,
		Size:      10,
		OrderID:   "0xabc",
		Status:    domain.PositionOpen,
		PlacedAt:  time.Now(),
	}}
	starts := []domain.MarketStart{
		{Period: 900, Asset: domain.AssetXRP, Slug: "xrp-updown-15m-fallback", ConditionID: "dummy_xrp_fallback", Placeholder: true},
	}
	n.PrintJournal(orders, starts)

	out := buf.String()
	assert.Contains(t, out, "DISPATCH JOURNAL (1 orders)")
	assert.Contains(t, out, "BTC-Down")
	assert.Contains(t, out, "live")
	assert.Contains(t, out, "4.50")
	assert.Contains(t, out, "MARKET STARTS")
	assert.Contains(t, out, "(disabled)")
}

func TestConsole_PrintJournal_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, true).PrintJournal(nil, nil)
	assert.Contains(t, buf.String(), "no orders recorded")
}

func TestConsole_PrintMarkets(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintMarkets(900, map[domain.Asset]domain.Market{
		domain.AssetBTC: {ConditionID: "0xbtc", Slug: "btc-updown-15m-900", Question: "Bitcoin Up or Down", Active: true},
		domain.AssetSOL: domain.PlaceholderMarket(domain.AssetSOL),
	})

	out := buf.String()
	assert.Contains(t, out, "0xbtc")
	assert.Contains(t, out, "Solana Trading Disabled")
}
