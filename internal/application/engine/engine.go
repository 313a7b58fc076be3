// Package engine contiene la lógica de despacho: oportunidades, ledger de
// posiciones y la máquina de estados que decide cuándo comprar.
package engine

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Executor ejecuta una oportunidad. El modo (simulado o live) se elige una
// vez al arrancar. Un error significa que no se registró ninguna posición.
type Executor interface {
	Execute(ctx context.Context, opp domain.BuyOpportunity) (domain.Position, error)
}

// FillWatcher recibe cada snapshot para seguir el estado de órdenes abiertas.
type FillWatcher interface {
	Observe(ctx context.Context, snap domain.MarketSnapshot)
}

// Modo del executor, usado en logs y métricas.
const (
	ModeSimulated = "simulated"
	ModeLive      = "live"
)
