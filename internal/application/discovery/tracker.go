package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// resolutionOrder es el orden en que se reclaman mercados. Un asset
// posterior nunca puede quedarse con el mercado de uno anterior.
var resolutionOrder = []domain.Asset{domain.AssetETH, domain.AssetBTC, domain.AssetSOL, domain.AssetXRP}

// Tracker mantiene los mercados del periodo en curso y los re-resuelve
// una sola vez al cambiar de periodo.
type Tracker struct {
	resolver *Resolver
	assets   map[domain.Asset]AssetConfig
	journal  ports.Journal    // opcional
	stream   ports.QuoteCache // opcional

	// OnResolve se llama tras cada resolución con los mercados nuevos.
	OnResolve func(period int64, markets map[domain.Asset]domain.Market)

	mu      sync.RWMutex
	period  int64
	markets map[domain.Asset]domain.Market
}

// NewTracker crea un Tracker. Los assets ausentes de assets quedan deshabilitados.
// journal y stream pueden ser nil.
func NewTracker(resolver *Resolver, assets map[domain.Asset]AssetConfig, journal ports.Journal, stream ports.QuoteCache) *Tracker {
	return &Tracker{
		resolver: resolver,
		assets:   assets,
		journal:  journal,
		stream:   stream,
	}
}

// Refresh asegura que los mercados correspondan al periodo de now.
// En el arranque un mercado duplicado entre assets es fatal (ErrDuplicateMarket);
// en un rollover el asset posterior se degrada a placeholder.
func (t *Tracker) Refresh(ctx context.Context, now time.Time) (int64, map[domain.Asset]domain.Market, error) {
	period := domain.PeriodStart(now)

	t.mu.RLock()
	current, markets := t.period, t.markets
	t.mu.RUnlock()
	if markets != nil && current == period {
		return current, maps.Clone(markets), nil
	}

	startup := markets == nil
	claimed := make(map[string]struct{})
	for _, m := range markets {
		if !m.Placeholder {
			claimed[m.ConditionID] = struct{}{}
		}
	}

	resolved := make(map[domain.Asset]domain.Market, len(resolutionOrder))
	for _, asset := range resolutionOrder {
		cfg, ok := t.assets[asset]
		if !ok || !cfg.Enabled {
			resolved[asset] = domain.PlaceholderMarket(asset)
			continue
		}

		m, err := t.resolver.Resolve(ctx, asset, cfg.Prefixes, claimed, cfg.IncludePrevious, now)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, fmt.Errorf("discovery.Refresh: %w", ctx.Err())
			}
			slog.Warn("market not found, trading disabled for period",
				"asset", asset, "period", period, "err", err)
			resolved[asset] = domain.PlaceholderMarket(asset)
			continue
		}
		claimed[m.ConditionID] = struct{}{}
		resolved[asset] = m
	}

	if err := dedupe(resolved, startup); err != nil {
		return 0, nil, err
	}

	t.mu.Lock()
	t.period = period
	t.markets = resolved
	t.mu.Unlock()

	slog.Info("markets resolved", "period", period, "enabled", countTradable(resolved))
	t.afterResolve(ctx, period, resolved, now)
	return period, maps.Clone(resolved), nil
}

func (t *Tracker) afterResolve(ctx context.Context, period int64, markets map[domain.Asset]domain.Market, now time.Time) {
	if t.journal != nil {
		starts := make([]domain.MarketStart, 0, len(markets))
		for _, a := range domain.Assets() {
			m := markets[a]
			starts = append(starts, domain.MarketStart{
				Period:      period,
				Asset:       a,
				ConditionID: m.ConditionID,
				Slug:        m.Slug,
				Placeholder: m.Placeholder,
				ResolvedAt:  now,
			})
		}
		if err := t.journal.RecordMarketStart(ctx, starts); err != nil {
			slog.Warn("journal: record market start failed", "period", period, "err", err)
		}
	}

	if t.stream != nil {
		var ids []string
		for _, a := range domain.Assets() {
			if m := markets[a]; m.Tradable() {
				ids = append(ids, m.TokenIDs()...)
			}
		}
		t.stream.Track(ids)
	}

	if t.OnResolve != nil {
		t.OnResolve(period, maps.Clone(markets))
	}
}

// dedupe detecta dos assets con el mismo condition id.
func dedupe(markets map[domain.Asset]domain.Market, startup bool) error {
	owner := make(map[string]domain.Asset, len(markets))
	for _, asset := range resolutionOrder {
		m := markets[asset]
		if m.Placeholder {
			continue
		}
		prev, dup := owner[m.ConditionID]
		if !dup {
			owner[m.ConditionID] = asset
			continue
		}
		if startup {
			return fmt.Errorf("discovery.Refresh: %s and %s both resolved to %s: %w",
				prev, asset, m.ConditionID, domain.ErrDuplicateMarket)
		}
		slog.Warn("duplicate market, disabling asset for period",
			"asset", asset, "owner", prev, "condition_id", m.ConditionID)
		markets[asset] = domain.PlaceholderMarket(asset)
	}
	return nil
}

func countTradable(markets map[domain.Asset]domain.Market) int {
	n := 0
	for _, m := range markets {
		if m.Tradable() {
			n++
		}
	}
	return n
}
