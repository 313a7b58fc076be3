package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

// newMarketWS levanta un servidor que responde a la suscripción con frames.
func newMarketWS(t *testing.T, subs chan<- []string, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			AssetsIDs []string `json:"assets_ids"`
			Type      string   `json:"type"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		assert.Equal(t, "market", sub.Type)
		subs <- sub.AssetsIDs

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestQuoteStream_BookAndPriceChange(t *testing.T) {
	subs := make(chan []string, 4)
	srv := newMarketWS(t, subs,
		`[{"event_type":"book","asset_id":"tok_up","market":"0xm",
		   "bids":[{"price":"0.44","size":"10"},{"price":"0.46","size":"5"}],
		   "asks":[{"price":"0.52","size":"7"},{"price":"0.50","size":"3"}]}]`,
		`{"event_type":"price_change","market":"0xm","price_changes":[
		   {"asset_id":"tok_up","price":"0.47","size":"20","side":"BUY"},
		   {"asset_id":"tok_up","price":"0.50","size":"0","side":"SELL"},
		   {"asset_id":"tok_unknown","price":"0.10","size":"1","side":"BUY"}]}`,
		`PONG`,
	)
	defer srv.Close()

	stream := polymarket.NewQuoteStream(wsURL(srv))
	stream.Track([]string{"tok_up", "tok_up"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	select {
	case ids := <-subs:
		assert.Equal(t, []string{"tok_up"}, ids)
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription received")
	}

	require.Eventually(t, func() bool {
		q, ok := stream.CachedQuote("tok_up", time.Minute)
		return ok && q.BestBid == 0.47 && q.BestAsk == 0.52
	}, 5*time.Second, 10*time.Millisecond)

	q, ok := stream.CachedQuote("tok_up", time.Minute)
	require.True(t, ok)
	assert.Equal(t, domain.QuoteSourceStream, q.Source)

	_, ok = stream.CachedQuote("tok_unknown", time.Minute)
	assert.False(t, ok, "price_change sin book previo se ignora")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, stream.Connected())
}

func TestQuoteStream_StaleQuote(t *testing.T) {
	subs := make(chan []string, 4)
	srv := newMarketWS(t, subs,
		`{"event_type":"book","asset_id":"tok","bids":[{"price":"0.30","size":"1"}],"asks":[]}`,
	)
	defer srv.Close()

	stream := polymarket.NewQuoteStream(wsURL(srv))
	stream.Track([]string{"tok"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	require.Eventually(t, func() bool {
		_, ok := stream.CachedQuote("tok", time.Minute)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	_, ok := stream.CachedQuote("tok", time.Millisecond)
	assert.False(t, ok, "una cotización más vieja que maxAge no cuenta")
}

func TestQuoteStream_TrackResubscribes(t *testing.T) {
	subs := make(chan []string, 4)
	srv := newMarketWS(t, subs)
	defer srv.Close()

	stream := polymarket.NewQuoteStream(wsURL(srv))
	stream.Track([]string{"a", "b"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	select {
	case ids := <-subs:
		assert.Equal(t, []string{"a", "b"}, ids)
	case <-time.After(5 * time.Second):
		t.Fatal("no first subscription")
	}

	require.Eventually(t, stream.Connected, 5*time.Second, 10*time.Millisecond)
	stream.Track([]string{"c", "d"})

	select {
	case ids := <-subs:
		assert.Equal(t, []string{"c", "d"}, ids)
	case <-time.After(5 * time.Second):
		t.Fatal("no resubscription after Track")
	}
}
