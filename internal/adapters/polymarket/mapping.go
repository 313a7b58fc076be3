package polymarket

import (
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
// Empareja outcomes y clobTokenIds por posición; los sobrantes se ignoran.
func mapGammaMarket(gm gammaMarket) domain.Market {
	m := domain.Market{
		ConditionID: gm.ConditionID,
		Slug:        gm.Slug,
		Question:    gm.Question,
		Active:      gm.Active,
		Closed:      gm.Closed,
		NegRisk:     gm.NegRisk,
		EndDate:     parseGammaDate(gm.EndDateISO),
	}

	n := min(len(gm.Outcomes), len(gm.ClobTokenIDs))
	m.Tokens = make([]domain.Token, 0, n)
	for i := 0; i < n; i++ {
		m.Tokens = append(m.Tokens, domain.Token{
			TokenID: gm.ClobTokenIDs[i],
			Outcome: gm.Outcomes[i],
		})
	}
	return m
}

// parseGammaDate acepta los formatos de fecha que usa Gamma.
func parseGammaDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapOrderBook convierte la respuesta de /book a domain.OrderBook.
func mapOrderBook(r orderBookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: r.AssetID,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
