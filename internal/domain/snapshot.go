package domain

import "time"

// QuoteSource indica de dónde viene una cotización.
type QuoteSource string

const (
	QuoteSourceREST   QuoteSource = "rest"
	QuoteSourceStream QuoteSource = "stream"
)

// Quote es el mejor bid/ask observado de un token.
// BestBid o BestAsk valen 0 si ese lado del book está vacío.
type Quote struct {
	TokenID   string
	BestBid   float64
	BestAsk   float64
	Source    QuoteSource
	FetchedAt time.Time
}

// AssetSnapshot es la vista de un asset dentro de un snapshot.
// Un token sin entrada en Quotes no tiene cotización este tick.
type AssetSnapshot struct {
	Market Market
	Quotes map[string]Quote // tokenID → quote
}

// MarketSnapshot es la vista consolidada de todos los assets en un instante.
// Se construye en cada tick y nunca se modifica.
type MarketSnapshot struct {
	Period    int64
	Elapsed   int64
	Remaining int64
	Assets    map[Asset]AssetSnapshot
	TakenAt   time.Time
}

// QuoteCount devuelve cuántos tokens tienen cotización en el snapshot.
func (s MarketSnapshot) QuoteCount() int {
	n := 0
	for _, a := range s.Assets {
		n += len(a.Quotes)
	}
	return n
}
