// Package live envía órdenes reales al CLOB de Polymarket.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/updownbot/internal/application/engine"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// pricePlaces es la precisión de precio y tamaño que acepta el CLOB en estos mercados.
const pricePlaces = 2

// Trader autentica y envía órdenes (polymarket.TradingClient).
type Trader interface {
	ports.Session
	ports.OrderSubmitter
}

// Executor coloca una orden límite GTC de compra por oportunidad.
type Executor struct {
	trader  Trader
	ledger  *engine.Ledger
	journal ports.Journal // opcional
	sizing  engine.Sizing
	now     func() time.Time
}

// New crea el executor live. Sin trader no hay clave con la que firmar.
func New(trader Trader, ledger *engine.Ledger, journal ports.Journal, sizing engine.Sizing) (*Executor, error) {
	if trader == nil {
		return nil, fmt.Errorf("live.New: %w", domain.ErrMissingCredentials)
	}
	return &Executor{
		trader:  trader,
		ledger:  ledger,
		journal: journal,
		sizing:  sizing,
		now:     time.Now,
	}, nil
}

// Execute envía la orden. Solo registra la posición si el CLOB la acepta.
func (e *Executor) Execute(ctx context.Context, opp domain.BuyOpportunity) (domain.Position, error) {
	if err := e.trader.Authenticate(ctx); err != nil {
		return domain.Position{}, fmt.Errorf("live.Execute: authenticate: %w", err)
	}

	price := decimal.NewFromFloat(opp.Price).Round(pricePlaces)
	if !price.IsPositive() || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Position{}, fmt.Errorf("live.Execute %s: price %s out of range", opp.TokenType, price)
	}
	size, err := e.sizing.Size(price.InexactFloat64())
	if err != nil {
		return domain.Position{}, fmt.Errorf("live.Execute %s: %w", opp.TokenType, err)
	}
	size = size.Round(pricePlaces)
	if !size.IsPositive() {
		return domain.Position{}, fmt.Errorf("live.Execute %s: size rounds to zero", opp.TokenType)
	}

	req := domain.PlaceOrderRequest{
		TokenID:     opp.TokenID,
		ConditionID: opp.ConditionID,
		Price:       price.InexactFloat64(),
		Size:        size.InexactFloat64(),
		Side:        domain.SideBuy,
		TimeInForce: domain.TimeInForceGTC,
		NegRisk:     opp.NegRisk,
	}

	slog.Info("live: placing order",
		"token_type", opp.TokenType.String(),
		"price", req.Price,
		"size", req.Size,
		"bid", opp.Bid,
		"elapsed", opp.Elapsed,
	)

	placed, err := e.trader.PlaceOrder(ctx, req)
	if err != nil {
		return domain.Position{}, fmt.Errorf("live.Execute %s: %w", opp.TokenType, err)
	}
	if placed.CLOBOrderID == "" {
		return domain.Position{}, fmt.Errorf("live.Execute %s: CLOB returned no order id", opp.TokenType)
	}

	p := e.ledger.Record(domain.Position{
		ID:          uuid.New().String(),
		TokenID:     opp.TokenID,
		ConditionID: opp.ConditionID,
		TokenType:   opp.TokenType,
		Period:      opp.Period,
		Price:       req.Price,
		Size:        req.Size,
		OrderID:     placed.CLOBOrderID,
		Status:      domain.PositionOpen,
		PlacedAt:    e.now(),
	})

	if e.journal != nil {
		if err := e.journal.SaveOrder(ctx, p); err != nil {
			slog.Warn("live: journal save failed", "order_id", p.OrderID, "err", err)
		}
	}

	slog.Info("live: order accepted",
		"token_type", p.TokenType.String(),
		"order_id", p.OrderID,
		"status", placed.Status,
		"taken", placed.TakenAmount,
		"made", placed.MadeAmount,
	)
	return p, nil
}
