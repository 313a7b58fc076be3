package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const gammaMarketsPath = "/markets"

// GetMarketBySlug busca en Gamma el mercado con ese slug exacto.
// Si Gamma no devuelve ninguno, el error envuelve domain.ErrMarketNotFound.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Market{}, fmt.Errorf("gamma.GetMarketBySlug: empty slug")
	}

	q := url.Values{}
	q.Set("slug", slug)
	endpoint := c.gammaBase + gammaMarketsPath + "?" + q.Encode()

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, endpoint, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("gamma.GetMarketBySlug %q: %w", slug, err)
	}

	// Preferir el match exacto; Gamma a veces devuelve mercados del mismo evento.
	for _, gm := range resp {
		if gm.Slug == slug {
			m := mapGammaMarket(gm)
			slog.Debug("gamma market found",
				"slug", slug,
				"condition_id", m.ConditionID,
				"active", m.Active,
				"closed", m.Closed,
				"tokens", len(m.Tokens),
			)
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("gamma.GetMarketBySlug %q: %w", slug, domain.ErrMarketNotFound)
}
