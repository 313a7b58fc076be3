package discovery_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/application/discovery"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

// fakeLookup sirve mercados por slug y registra los slugs consultados.
type fakeLookup struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	calls   []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{markets: make(map[string]domain.Market)}
}

func (f *fakeLookup) add(prefix string, period int64, condID string) {
	slug := domain.Slug(prefix, period)
	f.markets[slug] = domain.Market{
		ConditionID: condID,
		Slug:        slug,
		Active:      true,
		Tokens: []domain.Token{
			{TokenID: condID + "_up", Outcome: "Up"},
			{TokenID: condID + "_down", Outcome: "Down"},
		},
	}
}

func (f *fakeLookup) GetMarketBySlug(_ context.Context, slug string) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slug)
	m, ok := f.markets[slug]
	if !ok {
		return domain.Market{}, fmt.Errorf("gamma %q: %w", slug, domain.ErrMarketNotFound)
	}
	return m, nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// t0 cae 10s dentro de un periodo.
var t0 = time.Unix(1760623200+10, 0)

const p0 = int64(1760623200)

func TestResolve_CurrentPeriod(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")
	r := discovery.NewResolver(lookup)

	m, err := r.Resolve(context.Background(), domain.AssetBTC, []string{"btc"}, map[string]struct{}{}, true, t0)
	require.NoError(t, err)
	assert.Equal(t, "0xbtc", m.ConditionID)
	assert.Equal(t, []string{"btc-updown-15m-1760623200"}, lookup.calls)
}

func TestResolve_FallsBackToPreviousPeriod(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0-900, "0xprev")
	r := discovery.NewResolver(lookup)

	m, err := r.Resolve(context.Background(), domain.AssetBTC, []string{"btc"}, map[string]struct{}{}, true, t0)
	require.NoError(t, err)
	assert.Equal(t, "0xprev", m.ConditionID)
	assert.Equal(t, []string{
		"btc-updown-15m-1760623200",
		"btc-updown-15m-1760622300",
	}, lookup.calls)
}

func TestResolve_NoFallbackWhenDisabled(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("xrp", p0-900, "0xprev")
	r := discovery.NewResolver(lookup)

	_, err := r.Resolve(context.Background(), domain.AssetXRP, []string{"xrp"}, map[string]struct{}{}, false, t0)
	require.Error(t, err)
	assert.Equal(t, 1, lookup.callCount())
}

func TestResolve_PrefixOrder(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("sol", p0, "0xsol")
	r := discovery.NewResolver(lookup)

	m, err := r.Resolve(context.Background(), domain.AssetSOL, []string{"solana", "sol"}, map[string]struct{}{}, false, t0)
	require.NoError(t, err)
	assert.Equal(t, "0xsol", m.ConditionID)
	assert.Equal(t, []string{"solana-updown-15m-1760623200", "sol-updown-15m-1760623200"}, lookup.calls)
}

func TestResolve_ClaimedIsNotFound(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")
	r := discovery.NewResolver(lookup)

	claimed := map[string]struct{}{"0xbtc": {}}
	_, err := r.Resolve(context.Background(), domain.AssetBTC, []string{"btc"}, claimed, true, t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)

	var nf *domain.MarketNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.AssetBTC, nf.Asset)
	assert.Contains(t, err.Error(), "tried prefixes: btc")
	assert.Equal(t, 4, lookup.callCount(), "actual + 3 periodos anteriores")
	assert.Len(t, claimed, 1, "el resolver no modifica claimed")
}

func TestResolve_RejectsClosedAndInactive(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("eth", p0, "0xeth")
	closed := lookup.markets[domain.Slug("eth", p0)]
	closed.Closed = true
	lookup.markets[domain.Slug("eth", p0)] = closed
	lookup.add("eth", p0-900, "0xeth_prev")
	inactive := lookup.markets[domain.Slug("eth", p0-900)]
	inactive.Active = false
	lookup.markets[domain.Slug("eth", p0-900)] = inactive

	r := discovery.NewResolver(lookup)
	_, err := r.Resolve(context.Background(), domain.AssetETH, []string{"eth"}, nil, true, t0)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestResolve_ContextCancelled(t *testing.T) {
	r := discovery.NewResolver(newFakeLookup())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, domain.AssetBTC, []string{"btc"}, nil, true, t0)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Tracker ---

type fakeJournal struct {
	starts [][]domain.MarketStart
}

func (j *fakeJournal) SaveOrder(context.Context, domain.Position) error { return nil }
func (j *fakeJournal) UpdateOrderStatus(context.Context, string, domain.PositionStatus) error {
	return nil
}
func (j *fakeJournal) RecordMarketStart(_ context.Context, s []domain.MarketStart) error {
	j.starts = append(j.starts, s)
	return nil
}

type fakeStream struct {
	tracked [][]string
}

func (s *fakeStream) CachedQuote(string, time.Duration) (domain.Quote, bool) { return domain.Quote{}, false }
func (s *fakeStream) Track(ids []string)                                     { s.tracked = append(s.tracked, ids) }

func allAssets() map[domain.Asset]discovery.AssetConfig {
	return discovery.DefaultAssetConfigs()
}

func TestTracker_ResolvesOncePerPeriod(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")
	lookup.add("eth", p0, "0xeth")
	lookup.add("solana", p0, "0xsol")
	lookup.add("xrp", p0, "0xxrp")

	journal := &fakeJournal{}
	stream := &fakeStream{}
	tr := discovery.NewTracker(discovery.NewResolver(lookup), allAssets(), journal, stream)

	period, markets, err := tr.Refresh(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, p0, period)
	assert.Equal(t, "0xbtc", markets[domain.AssetBTC].ConditionID)
	assert.Equal(t, "0xsol", markets[domain.AssetSOL].ConditionID)
	calls := lookup.callCount()

	_, _, err = tr.Refresh(context.Background(), t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, calls, lookup.callCount(), "mismo periodo no vuelve a consultar Gamma")

	require.Len(t, journal.starts, 1)
	assert.Len(t, journal.starts[0], 4)
	require.Len(t, stream.tracked, 1)
	assert.Len(t, stream.tracked[0], 8)
}

func TestTracker_DisabledAndMissingBecomePlaceholders(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")

	assets := allAssets()
	xrp := assets[domain.AssetXRP]
	xrp.Enabled = false
	assets[domain.AssetXRP] = xrp

	tr := discovery.NewTracker(discovery.NewResolver(lookup), assets, nil, nil)
	_, markets, err := tr.Refresh(context.Background(), t0)
	require.NoError(t, err)

	assert.True(t, markets[domain.AssetBTC].Tradable())
	for _, a := range []domain.Asset{domain.AssetETH, domain.AssetSOL, domain.AssetXRP} {
		assert.True(t, markets[a].Placeholder, a)
		assert.False(t, markets[a].Tradable(), a)
	}
	assert.Equal(t, "dummy_xrp_fallback", markets[domain.AssetXRP].ConditionID)

	for _, slug := range lookup.calls {
		assert.NotContains(t, slug, "xrp-", "un asset deshabilitado no consulta Gamma")
	}
}

func TestTracker_RolloverSeedsClaimedSet(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc_p0")
	lookup.add("eth", p0, "0xeth_p0")

	tr := discovery.NewTracker(discovery.NewResolver(lookup), allAssets(), nil, nil)
	_, _, err := tr.Refresh(context.Background(), t0)
	require.NoError(t, err)

	// Siguiente periodo: BTC publicó mercado nuevo, ETH todavía no.
	// El fallback de ETH encontraría 0xeth_p0 pero ya lo usamos el periodo anterior.
	lookup.add("btc", p0+900, "0xbtc_p1")
	period, markets, err := tr.Refresh(context.Background(), t0.Add(15*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, p0+900, period)
	assert.Equal(t, "0xbtc_p1", markets[domain.AssetBTC].ConditionID)
	assert.True(t, markets[domain.AssetETH].Placeholder)
}

func TestTracker_OnResolveHook(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")

	tr := discovery.NewTracker(discovery.NewResolver(lookup), allAssets(), nil, nil)
	var got []int64
	tr.OnResolve = func(period int64, markets map[domain.Asset]domain.Market) {
		got = append(got, period)
		assert.Len(t, markets, 4)
	}

	_, _, err := tr.Refresh(context.Background(), t0)
	require.NoError(t, err)

	// Mismo periodo: sin re-resolución ni hook.
	period, markets, err := tr.Refresh(context.Background(), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, p0, period)
	assert.Len(t, markets, 4)
	assert.Equal(t, []int64{p0}, got)
}

func TestTracker_CancelledContextKeepsPreviousState(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add("btc", p0, "0xbtc")
	tr := discovery.NewTracker(discovery.NewResolver(lookup), allAssets(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := tr.Refresh(ctx, t0)
	require.Error(t, err)

	// El fallo no deja estado: el siguiente Refresh resuelve como en el arranque.
	resolved := 0
	tr.OnResolve = func(int64, map[domain.Asset]domain.Market) { resolved++ }
	period, markets, err := tr.Refresh(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, p0, period)
	assert.Equal(t, "0xbtc", markets[domain.AssetBTC].ConditionID)
	assert.Equal(t, 1, resolved)
}
