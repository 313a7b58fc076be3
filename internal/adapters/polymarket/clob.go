package polymarket

// clob.go: Polymarket CLOB order book reads.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const bookPath = "/book"

// FetchOrderBook obtiene el orderbook completo de un token.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	endpoint := c.clobBase + bookPath + "?" + q.Encode()

	var resp orderBookResponse
	if err := c.get(ctx, c.booksLimiter, endpoint, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook %s: %w", tokenID, err)
	}
	if resp.AssetID == "" {
		resp.AssetID = tokenID
	}
	return mapOrderBook(resp), nil
}

// BestQuote devuelve el mejor bid y ask de un token.
// Un book vacío no es un error: devuelve 0 en el lado vacío.
func (c *Client) BestQuote(ctx context.Context, tokenID string) (domain.Quote, error) {
	book, err := c.FetchOrderBook(ctx, tokenID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}

	q := domain.Quote{
		TokenID:   tokenID,
		BestBid:   book.BestBid(),
		BestAsk:   book.BestAsk(),
		Source:    domain.QuoteSourceREST,
		FetchedAt: time.Now(),
	}
	slog.Debug("book fetched", "token", tokenID, "bid", q.BestBid, "ask", q.BestAsk)
	return q, nil
}
