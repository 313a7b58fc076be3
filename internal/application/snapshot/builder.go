// Package snapshot construye la vista de cotizaciones de cada tick.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// maxInFlight acota los GET /book simultáneos; son 8 tokens como mucho.
const maxInFlight = 8

// Config contiene los tiempos del builder.
type Config struct {
	RequestTimeout time.Duration // por fetch; 0 = sin límite propio
	StreamMaxAge   time.Duration // antigüedad máxima de una cotización del stream
}

// Builder obtiene el mejor bid/ask de cada token de los mercados operables.
type Builder struct {
	quotes  ports.QuoteProvider
	cache   ports.QuoteCache // opcional
	metrics ports.Metrics    // opcional
	cfg     Config
}

// New crea un Builder. cache y metrics pueden ser nil.
func New(quotes ports.QuoteProvider, cache ports.QuoteCache, metrics ports.Metrics, cfg Config) *Builder {
	return &Builder{quotes: quotes, cache: cache, metrics: metrics, cfg: cfg}
}

// Build construye el snapshot del periodo. Los fetches corren en paralelo y
// un fallo nunca cancela a los demás: el token fallido queda sin entrada en Quotes.
func (b *Builder) Build(ctx context.Context, period int64, markets map[domain.Asset]domain.Market, now time.Time) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		Period:    period,
		Elapsed:   domain.ElapsedFor(period, now),
		Remaining: domain.RemainingFor(period, now),
		Assets:    make(map[domain.Asset]domain.AssetSnapshot, len(markets)),
		TakenAt:   now,
	}
	if r, ok := marketsRemaining(period, markets, now); ok && r < snap.Remaining {
		snap.Remaining = r
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxInFlight)

	for asset, m := range markets {
		as := domain.AssetSnapshot{Market: m, Quotes: make(map[string]domain.Quote, len(m.Tokens))}
		snap.Assets[asset] = as
		if !m.Tradable() {
			continue
		}

		for _, tokenID := range m.TokenIDs() {
			if q, ok := b.cached(tokenID); ok {
				mu.Lock()
				as.Quotes[tokenID] = q
				mu.Unlock()
				continue
			}

			g.Go(func() error {
				q, err := b.fetch(ctx, tokenID)
				if err != nil {
					slog.Warn("quote fetch failed", "asset", asset, "token", tokenID, "err", err)
					if b.metrics != nil {
						b.metrics.QuoteFailure(asset)
					}
					return nil
				}
				mu.Lock()
				as.Quotes[tokenID] = q
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()

	slog.Debug("snapshot built",
		"period", period,
		"elapsed", snap.Elapsed,
		"quotes", snap.QuoteCount(),
		"duration", time.Since(now).Round(time.Millisecond),
	)
	return snap
}

// marketsRemaining calcula los segundos hasta el endDate más tardío de los
// mercados operables del periodo. Los mercados de un periodo anterior
// (endDate <= period) y los que no traen endDate no cuentan.
func marketsRemaining(period int64, markets map[domain.Asset]domain.Market, now time.Time) (int64, bool) {
	var end int64
	for _, m := range markets {
		if !m.Tradable() || m.EndDate.IsZero() {
			continue
		}
		if e := m.EndDate.Unix(); e > period && e > end {
			end = e
		}
	}
	if end == 0 {
		return 0, false
	}
	return max(end-now.Unix(), 0), true
}

func (b *Builder) cached(tokenID string) (domain.Quote, bool) {
	if b.cache == nil || b.cfg.StreamMaxAge <= 0 {
		return domain.Quote{}, false
	}
	return b.cache.CachedQuote(tokenID, b.cfg.StreamMaxAge)
}

func (b *Builder) fetch(ctx context.Context, tokenID string) (domain.Quote, error) {
	if b.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}
	return b.quotes.BestQuote(ctx, tokenID)
}
