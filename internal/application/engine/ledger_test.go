package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/application/engine"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

var btcUp = domain.TokenType{Asset: domain.AssetBTC, Outcome: domain.OutcomeUp}

func TestLedger_RecordAndActive(t *testing.T) {
	l := engine.NewLedger()
	assert.False(t, l.HasActivePosition(p0, btcUp))

	p := l.Record(domain.Position{ID: "a", TokenID: "btc_up", TokenType: btcUp, Period: p0, Status: domain.PositionSimulated})
	assert.Equal(t, "a", p.ID)
	assert.True(t, l.HasActivePosition(p0, btcUp))
	assert.False(t, l.HasActivePosition(p0+900, btcUp))
	assert.False(t, l.HasActivePosition(p0, domain.TokenType{Asset: domain.AssetBTC, Outcome: domain.OutcomeDown}))

	// Misma clave: se conserva la primera.
	again := l.Record(domain.Position{ID: "b", TokenID: "btc_up", TokenType: btcUp, Period: p0})
	assert.Equal(t, "a", again.ID)
	assert.Equal(t, 1, l.Len())
}

func TestLedger_Close(t *testing.T) {
	l := engine.NewLedger()
	p := l.Record(domain.Position{ID: "a", TokenID: "btc_up", TokenType: btcUp, Period: p0})

	require.True(t, l.Close(p.Key()))
	assert.False(t, l.HasActivePosition(p0, btcUp))

	got, ok := l.Get(p.Key())
	require.True(t, ok)
	assert.True(t, got.Closed)

	assert.False(t, l.Close(domain.PositionKey{Period: 1, TokenID: "nope"}))
}

func TestLedger_ActiveIndexTracksCloses(t *testing.T) {
	l := engine.NewLedger()
	// Dos tokens distintos con el mismo tipo en el mismo periodo.
	a := l.Record(domain.Position{ID: "a", TokenID: "btc_up", TokenType: btcUp, Period: p0})
	b := l.Record(domain.Position{ID: "b", TokenID: "btc_up_alt", TokenType: btcUp, Period: p0})
	l.Record(domain.Position{ID: "c", TokenID: "btc_up_old", TokenType: btcUp, Period: p0 + 900, Closed: true})

	assert.False(t, l.HasActivePosition(p0+900, btcUp), "una posición registrada cerrada no está activa")

	require.True(t, l.Close(a.Key()))
	require.True(t, l.Close(a.Key()))
	assert.True(t, l.HasActivePosition(p0, btcUp), "cerrar dos veces la misma posición no libera la otra")

	require.True(t, l.Close(b.Key()))
	assert.False(t, l.HasActivePosition(p0, btcUp))
	assert.False(t, l.Close(domain.PositionKey{Period: p0, TokenID: "missing"}))
	assert.Equal(t, 3, l.Len())
}

func TestLedger_StatusAndQueries(t *testing.T) {
	l := engine.NewLedger()
	l.Record(domain.Position{ID: "late", TokenID: "x", Period: p0 + 900, Status: domain.PositionSimulated})
	l.Record(domain.Position{ID: "first", TokenID: "y", Period: p0, Status: domain.PositionSimulated})
	l.Record(domain.Position{ID: "second", TokenID: "z", Period: p0, Status: domain.PositionSimulated})

	require.True(t, l.SetStatus(domain.PositionKey{Period: p0, TokenID: "z"}, domain.PositionFilled))

	open := l.Open(domain.PositionSimulated)
	require.Len(t, open, 2)
	assert.Equal(t, "first", open[0].ID)
	assert.Equal(t, "late", open[1].ID)

	period := l.Positions(p0)
	require.Len(t, period, 2)
	assert.Equal(t, "first", period[0].ID)
	assert.Equal(t, domain.PositionFilled, period[1].Status)
}
