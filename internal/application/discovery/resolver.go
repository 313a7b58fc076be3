// Package discovery resuelve qué mercado up/down de 15 minutos usa cada
// asset en el periodo actual.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// previousPeriods es cuántos periodos hacia atrás prueba el fallback.
const previousPeriods = 3

// AssetConfig describe cómo buscar el mercado de un asset.
type AssetConfig struct {
	Enabled         bool
	Prefixes        []string
	IncludePrevious bool
}

// DefaultAssetConfigs devuelve los prefijos y fallbacks por defecto.
// SOL prueba "solana" antes que "sol"; solo BTC y ETH miran periodos anteriores.
func DefaultAssetConfigs() map[domain.Asset]AssetConfig {
	return map[domain.Asset]AssetConfig{
		domain.AssetBTC: {Enabled: true, Prefixes: []string{"btc"}, IncludePrevious: true},
		domain.AssetETH: {Enabled: true, Prefixes: []string{"eth"}, IncludePrevious: true},
		domain.AssetSOL: {Enabled: true, Prefixes: []string{"solana", "sol"}, IncludePrevious: false},
		domain.AssetXRP: {Enabled: true, Prefixes: []string{"xrp"}, IncludePrevious: false},
	}
}

// Resolver busca mercados por slug. No guarda estado entre llamadas.
type Resolver struct {
	lookup ports.MarketLookup
}

// NewResolver crea un Resolver sobre la búsqueda por slug de Gamma.
func NewResolver(lookup ports.MarketLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve devuelve el primer mercado activo, abierto y no reclamado para el
// asset. Por cada prefijo prueba el periodo actual y, si includePrevious,
// los tres anteriores. claimed no se modifica.
func (r *Resolver) Resolve(
	ctx context.Context,
	asset domain.Asset,
	prefixes []string,
	claimed map[string]struct{},
	includePrevious bool,
	now time.Time,
) (domain.Market, error) {
	period := domain.PeriodStart(now)

	for _, prefix := range prefixes {
		offsets := 0
		if includePrevious {
			offsets = previousPeriods
		}
		for i := 0; i <= offsets; i++ {
			if err := ctx.Err(); err != nil {
				return domain.Market{}, fmt.Errorf("discovery.Resolve %s: %w", asset, err)
			}

			slug := domain.Slug(prefix, period-int64(i)*domain.PeriodLength)
			m, err := r.lookup.GetMarketBySlug(ctx, slug)
			if err != nil {
				if ctx.Err() != nil {
					return domain.Market{}, fmt.Errorf("discovery.Resolve %s: %w", asset, ctx.Err())
				}
				slog.Debug("market lookup failed", "asset", asset, "slug", slug, "err", err)
				continue
			}
			if reason := rejectReason(m, claimed); reason != "" {
				slog.Debug("market rejected", "asset", asset, "slug", slug, "reason", reason)
				continue
			}

			slog.Info("market found",
				"asset", asset,
				"slug", m.Slug,
				"condition_id", m.ConditionID,
			)
			return m, nil
		}
	}

	return domain.Market{}, &domain.MarketNotFoundError{Asset: asset, Prefixes: prefixes}
}

func rejectReason(m domain.Market, claimed map[string]struct{}) string {
	switch {
	case !m.Active:
		return "inactive"
	case m.Closed:
		return "closed"
	}
	if _, ok := claimed[m.ConditionID]; ok {
		return "claimed"
	}
	return ""
}
