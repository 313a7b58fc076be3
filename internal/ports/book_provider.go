package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// QuoteProvider lee el mejor bid/ask de un token del CLOB.
type QuoteProvider interface {
	BestQuote(ctx context.Context, tokenID string) (domain.Quote, error)
}

// QuoteCache es una fuente de cotizaciones mantenida en segundo plano (websocket).
type QuoteCache interface {
	// CachedQuote devuelve la cotización si es más reciente que maxAge.
	CachedQuote(tokenID string, maxAge time.Duration) (domain.Quote, bool)

	// Track reemplaza el conjunto de tokens suscritos.
	Track(tokenIDs []string)
}
