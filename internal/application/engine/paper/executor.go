// Package paper implements the simulated executor: orders are recorded in the
// ledger and the journal but never leave the process.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/updownbot/internal/application/engine"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// Executor simulates limit orders. It makes no network calls.
type Executor struct {
	ledger  *engine.Ledger
	journal ports.Journal // optional
	sizing  engine.Sizing
	now     func() time.Time
}

// New creates a simulated executor. journal may be nil.
func New(ledger *engine.Ledger, journal ports.Journal, sizing engine.Sizing) *Executor {
	return &Executor{
		ledger:  ledger,
		journal: journal,
		sizing:  sizing,
		now:     time.Now,
	}
}

// Execute records a simulated order for the opportunity.
func (e *Executor) Execute(ctx context.Context, opp domain.BuyOpportunity) (domain.Position, error) {
	size, err := e.sizing.Size(opp.Price)
	if err != nil {
		return domain.Position{}, fmt.Errorf("paper.Execute %s: %w", opp.TokenType, err)
	}

	p := e.ledger.Record(domain.Position{
		ID:          uuid.New().String(),
		TokenID:     opp.TokenID,
		ConditionID: opp.ConditionID,
		TokenType:   opp.TokenType,
		Period:      opp.Period,
		Price:       opp.Price,
		Size:        size.InexactFloat64(),
		OrderID:     "sim-" + uuid.New().String(),
		Status:      domain.PositionSimulated,
		Simulated:   true,
		PlacedAt:    e.now(),
	})

	if e.journal != nil {
		if err := e.journal.SaveOrder(ctx, p); err != nil {
			slog.Warn("paper: journal save failed", "order_id", p.OrderID, "err", err)
		}
	}

	slog.Info("paper: simulated order",
		"token_type", p.TokenType.String(),
		"price", p.Price,
		"size", p.Size,
		"bid", opp.Bid,
		"order_id", p.OrderID,
	)
	return p, nil
}

// Observe marks open simulated orders as filled once the best ask of their
// token trades at or below the limit price.
func (e *Executor) Observe(ctx context.Context, snap domain.MarketSnapshot) {
	for _, p := range e.ledger.Open(domain.PositionSimulated) {
		as, ok := snap.Assets[p.TokenType.Asset]
		if !ok {
			continue
		}
		q, ok := as.Quotes[p.TokenID]
		if !ok || q.BestAsk <= 0 || q.BestAsk > p.Price {
			continue
		}

		e.ledger.SetStatus(p.Key(), domain.PositionFilled)
		if e.journal != nil {
			if err := e.journal.UpdateOrderStatus(ctx, p.ID, domain.PositionFilled); err != nil {
				slog.Warn("paper: journal update failed", "order_id", p.OrderID, "err", err)
			}
		}
		slog.Info("paper: simulated fill",
			"token_type", p.TokenType.String(),
			"price", p.Price,
			"ask", q.BestAsk,
			"order_id", p.OrderID,
		)
	}
}
