package polymarket

// stream.go: WebSocket feed of the CLOB market channel.
//
// Keeps an in-memory book per tracked token so the snapshot builder can skip
// the REST round trip while the feed is fresh.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const (
	defaultWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

	wsWriteWait         = 10 * time.Second
	wsReadWait          = 60 * time.Second
	wsPingPeriod        = 10 * time.Second
	wsHandshakeTimeout  = 15 * time.Second
	wsReconnectDelay    = 1 * time.Second
	wsMaxReconnectDelay = 30 * time.Second
)

var errResubscribe = errors.New("stream: resubscribe")

// subscribeMessage es el primer mensaje que espera el canal market.
type subscribeMessage struct {
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

// wsEvent cubre los eventos book y price_change del canal market.
type wsEvent struct {
	EventType    string          `json:"event_type"`
	AssetID      string          `json:"asset_id"`
	Market       string          `json:"market"`
	Bids         []bookEntryRaw  `json:"bids"`
	Asks         []bookEntryRaw  `json:"asks"`
	PriceChanges []wsPriceChange `json:"price_changes"`
	Changes      []wsPriceChange `json:"changes"`
}

type wsPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

// streamBook son los niveles vivos de un token. Precio → size.
type streamBook struct {
	bids    map[float64]float64
	asks    map[float64]float64
	updated time.Time
}

func (b *streamBook) quote(tokenID string) domain.Quote {
	q := domain.Quote{TokenID: tokenID, Source: domain.QuoteSourceStream, FetchedAt: b.updated}
	for p := range b.bids {
		if p > q.BestBid {
			q.BestBid = p
		}
	}
	for p := range b.asks {
		if q.BestAsk == 0 || p < q.BestAsk {
			q.BestAsk = p
		}
	}
	return q
}

// QuoteStream implementa ports.QuoteCache sobre el websocket del CLOB.
type QuoteStream struct {
	url    string
	dialer websocket.Dialer
	now    func() time.Time

	mu      sync.RWMutex
	books   map[string]*streamBook
	tracked []string

	changed   chan struct{}
	connected atomic.Bool
}

// NewQuoteStream crea el stream. url vacío usa el endpoint de producción.
func NewQuoteStream(url string) *QuoteStream {
	if url == "" {
		url = defaultWSURL
	}
	return &QuoteStream{
		url:     url,
		dialer:  websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		now:     time.Now,
		books:   make(map[string]*streamBook),
		changed: make(chan struct{}, 1),
	}
}

// Track reemplaza el conjunto de tokens suscritos. Los books de tokens que
// dejan de seguirse se descartan y la conexión se rehace con la lista nueva.
func (s *QuoteStream) Track(tokenIDs []string) {
	ids := slices.Clone(tokenIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	s.mu.Lock()
	if slices.Equal(ids, s.tracked) {
		s.mu.Unlock()
		return
	}
	s.tracked = ids
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	for id := range s.books {
		if _, ok := keep[id]; !ok {
			delete(s.books, id)
		}
	}
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// CachedQuote devuelve la cotización del stream si es más reciente que maxAge.
func (s *QuoteStream) CachedQuote(tokenID string, maxAge time.Duration) (domain.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[tokenID]
	if !ok || s.now().Sub(b.updated) > maxAge {
		return domain.Quote{}, false
	}
	return b.quote(tokenID), true
}

// Connected indica si hay una sesión websocket abierta.
func (s *QuoteStream) Connected() bool {
	return s.connected.Load()
}

// Run mantiene la conexión hasta que ctx se cancela, reconectando con backoff.
func (s *QuoteStream) Run(ctx context.Context) error {
	delay := wsReconnectDelay
	for ctx.Err() == nil {
		// La lista leída abajo ya incluye cualquier cambio pendiente.
		select {
		case <-s.changed:
		default:
		}
		ids := s.trackedIDs()
		if len(ids) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-s.changed:
				continue
			}
		}

		dialed, err := s.session(ctx, ids)
		if ctx.Err() != nil {
			return nil
		}
		if dialed {
			delay = wsReconnectDelay
		}
		if errors.Is(err, errResubscribe) {
			slog.Debug("stream: resubscribing", "tokens", len(s.trackedIDs()))
			continue
		}

		slog.Warn("stream: disconnected", "err", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		case <-s.changed:
		}
		delay = min(delay*2, wsMaxReconnectDelay)
	}
	return nil
}

// session abre una conexión, suscribe ids y lee hasta error.
// dialed indica si la conexión llegó a establecerse.
func (s *QuoteStream) session(ctx context.Context, ids []string) (dialed bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("stream: dial: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(subscribeMessage{AssetsIDs: ids, Type: "market"}); err != nil {
		return true, fmt.Errorf("stream: subscribe: %w", err)
	}

	s.connected.Store(true)
	defer s.connected.Store(false)
	slog.Info("stream: subscribed", "tokens", len(ids))

	var resubscribe atomic.Bool
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-s.changed:
				resubscribe.Store(true)
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadWait))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if resubscribe.Load() {
				return true, errResubscribe
			}
			return true, fmt.Errorf("stream: read: %w", err)
		}
		s.handleMessage(msg)
	}
}

func (s *QuoteStream) trackedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tracked)
}

// handleMessage aplica un frame del canal market. El servidor manda tanto
// eventos sueltos como arrays de eventos; "PONG" y frames raros se ignoran.
func (s *QuoteStream) handleMessage(raw []byte) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	var events []wsEvent
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &events); err != nil {
			slog.Debug("stream: bad frame", "err", err)
			return
		}
	case '{':
		var ev wsEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Debug("stream: bad frame", "err", err)
			return
		}
		events = []wsEvent{ev}
	default:
		return
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		switch ev.EventType {
		case "book":
			s.applyBook(ev, now)
		case "price_change":
			s.applyPriceChange(ev, now)
		}
	}
}

// applyBook reemplaza el book completo de un token. Caller holds s.mu.
func (s *QuoteStream) applyBook(ev wsEvent, now time.Time) {
	if !s.isTracked(ev.AssetID) {
		return
	}
	b := &streamBook{
		bids:    make(map[float64]float64, len(ev.Bids)),
		asks:    make(map[float64]float64, len(ev.Asks)),
		updated: now,
	}
	for _, e := range mapBookEntries(ev.Bids, false) {
		b.bids[e.Price] = e.Size
	}
	for _, e := range mapBookEntries(ev.Asks, true) {
		b.asks[e.Price] = e.Size
	}
	s.books[ev.AssetID] = b
}

// applyPriceChange actualiza niveles sueltos. Solo aplica a tokens que ya
// recibieron un book completo. Caller holds s.mu.
func (s *QuoteStream) applyPriceChange(ev wsEvent, now time.Time) {
	changes := ev.PriceChanges
	if len(changes) == 0 {
		changes = ev.Changes
	}
	for _, c := range changes {
		assetID := c.AssetID
		if assetID == "" {
			assetID = ev.AssetID
		}
		b, ok := s.books[assetID]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(c.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		size, _ := strconv.ParseFloat(c.Size, 64)

		levels := b.bids
		if c.Side == "SELL" {
			levels = b.asks
		}
		if size <= 0 {
			delete(levels, price)
		} else {
			levels[price] = size
		}
		b.updated = now
	}
}

// Caller holds s.mu.
func (s *QuoteStream) isTracked(id string) bool {
	_, found := slices.BinarySearch(s.tracked, id)
	return found
}
