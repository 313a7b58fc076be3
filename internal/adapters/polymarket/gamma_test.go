package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMarketBySlug_StringifiedArrays(t *testing.T) {
	data, err := os.ReadFile("../../../testdata/fixtures/gamma_markets_btc.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "btc-updown-15m-1760623200", r.URL.Query().Get("slug"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	m, err := client.GetMarketBySlug(context.Background(), "btc-updown-15m-1760623200")
	require.NoError(t, err)

	// Gamma devuelve dos mercados; solo vale el slug exacto
	assert.Equal(t, "0xbtc0001", m.ConditionID)
	assert.Equal(t, "btc-updown-15m-1760623200", m.Slug)
	assert.True(t, m.Active)
	assert.False(t, m.Closed)
	assert.False(t, m.NegRisk)
	assert.Equal(t, time.Date(2025, 10, 16, 14, 15, 0, 0, time.UTC), m.EndDate)

	require.Len(t, m.Tokens, 2)
	assert.Equal(t, domain.Token{TokenID: "tok_btc_up", Outcome: "Up"}, m.Tokens[0])
	assert.Equal(t, domain.Token{TokenID: "tok_btc_down", Outcome: "Down"}, m.Tokens[1])

	up, ok := m.TokenFor(domain.OutcomeUp)
	require.True(t, ok)
	assert.Equal(t, "tok_btc_up", up.TokenID)
}

func TestGetMarketBySlug_PlainArrays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"conditionId": "0xeth",
			"slug": "eth-updown-15m-900",
			"outcomes": ["Up", "Down"],
			"clobTokenIds": ["e_up", "e_down"],
			"active": true,
			"closed": false,
			"negRisk": true
		}]`))
	}))
	defer srv.Close()

	m, err := newTestClient(nil, srv).GetMarketBySlug(context.Background(), "eth-updown-15m-900")
	require.NoError(t, err)
	assert.True(t, m.NegRisk)
	assert.Equal(t, []string{"e_up", "e_down"}, m.TokenIDs())
}

func TestGetMarketBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(nil, srv).GetMarketBySlug(context.Background(), "xrp-updown-15m-900")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestGetMarketBySlug_EmptySlug(t *testing.T) {
	_, err := newTestClient(nil, nil).GetMarketBySlug(context.Background(), "  ")
	assert.Error(t, err)
}
