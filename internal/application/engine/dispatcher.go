package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// TickOutcome resume qué hizo un tick del dispatcher.
type TickOutcome string

const (
	OutcomeDispatched     TickOutcome = "dispatched"
	OutcomeError          TickOutcome = "error"
	SkipClosed            TickOutcome = "skip_closed"
	SkipFirstTick         TickOutcome = "skip_first_tick"
	SkipOutsideWindow     TickOutcome = "skip_outside_window"
	SkipAlreadyDispatched TickOutcome = "skip_already_dispatched"
	SkipClaimedElsewhere  TickOutcome = "skip_claimed_elsewhere"
)

// MarketSource devuelve los mercados del periodo de now (discovery.Tracker).
type MarketSource interface {
	Refresh(ctx context.Context, now time.Time) (int64, map[domain.Asset]domain.Market, error)
}

// SnapshotSource construye el snapshot de cotizaciones (snapshot.Builder).
type SnapshotSource interface {
	Build(ctx context.Context, period int64, markets map[domain.Asset]domain.Market, now time.Time) domain.MarketSnapshot
}

// Config contiene los parámetros del bucle de despacho.
type Config struct {
	Interval   time.Duration // periodo del ticker
	Window     time.Duration // ventana de despacho desde el inicio del periodo
	LimitPrice float64
	Mode       string // ModeSimulated | ModeLive
}

// Deps son las dependencias del Dispatcher. Notifier, Guard, Metrics,
// Watcher y Clock son opcionales.
type Deps struct {
	Markets   MarketSource
	Snapshots SnapshotSource
	Ledger    *Ledger
	Executor  Executor
	Notifier  ports.Notifier
	Guard     ports.PeriodGuard
	Metrics   ports.Metrics
	Watcher   FillWatcher
	Clock     func() time.Time // time.Now si es nil
}

// Dispatcher decide en cada tick si toca despachar el periodo.
// Como mucho un pase de despacho por periodo, y solo dentro de la ventana.
type Dispatcher struct {
	cfg  Config
	deps Deps
	now  func() time.Time

	started        bool
	lastSeen       int64
	lastDispatched int64
}

// NewDispatcher crea un Dispatcher.
func NewDispatcher(cfg Config, deps Deps) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 2 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulated
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{cfg: cfg, deps: deps, now: now}
}

// Run llama a Step en cada tick hasta que ctx se cancela.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("dispatch: starting",
		"mode", d.cfg.Mode,
		"interval", d.cfg.Interval,
		"window", d.cfg.Window,
		"limit_price", d.cfg.LimitPrice,
	)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		d.tick(ctx, d.now())

		select {
		case <-ctx.Done():
			slog.Info("dispatch: stopped", "positions", d.deps.Ledger.Len())
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	outcome, _, err := d.Step(ctx, now)
	if err != nil && ctx.Err() == nil {
		slog.Error("dispatch: tick failed", "err", err)
	}
	if d.deps.Metrics != nil {
		d.deps.Metrics.Tick(string(outcome))
	}
}

// Step ejecuta un tick sin timer. Devuelve el resultado del tick y, si hubo
// pase de despacho, el resultado de cada oportunidad.
func (d *Dispatcher) Step(ctx context.Context, now time.Time) (TickOutcome, []domain.DispatchResult, error) {
	start := d.now()
	period, markets, err := d.deps.Markets.Refresh(ctx, now)
	if err != nil {
		return OutcomeError, nil, fmt.Errorf("dispatch.Step: refresh markets: %w", err)
	}
	if d.deps.Metrics != nil {
		d.deps.Metrics.Period(period)
	}

	snap := d.deps.Snapshots.Build(ctx, period, markets, now)
	// Refresh y Build pueden tardar segundos en el cambio de periodo: la
	// ventana se evalúa con el reloj del momento de decidir, no el del tick.
	decided := now.Add(d.now().Sub(start))
	snap.Elapsed = domain.ElapsedFor(snap.Period, decided)
	snap.Remaining = min(snap.Remaining, domain.RemainingFor(snap.Period, decided))
	if d.deps.Watcher != nil {
		d.deps.Watcher.Observe(ctx, snap)
	}

	if snap.Remaining == 0 {
		return SkipClosed, nil, nil
	}

	if !d.started {
		d.started = true
		d.lastSeen = snap.Period
		slog.Info("dispatch: first tick, waiting for next period",
			"period", snap.Period, "elapsed", snap.Elapsed, "next", domain.NextBoundary(now).UTC())
		return SkipFirstTick, nil, nil
	}
	if snap.Period != d.lastSeen {
		slog.Info("dispatch: new period", "period", snap.Period, "previous", d.lastSeen)
	}
	d.lastSeen = snap.Period

	if time.Duration(snap.Elapsed)*time.Second > d.cfg.Window {
		return SkipOutsideWindow, nil, nil
	}
	if d.lastDispatched == snap.Period {
		return SkipAlreadyDispatched, nil, nil
	}
	// Se marca antes de enviar nada: un fallo no se reintenta en el periodo.
	d.lastDispatched = snap.Period

	if d.deps.Guard != nil {
		ok, err := d.deps.Guard.Claim(ctx, snap.Period)
		switch {
		case err != nil:
			slog.Warn("dispatch: period guard unavailable, continuing", "period", snap.Period, "err", err)
		case !ok:
			slog.Info("dispatch: period claimed by another instance", "period", snap.Period)
			return SkipClaimedElsewhere, nil, nil
		}
	}

	results := d.dispatch(ctx, snap)

	if d.deps.Notifier != nil {
		if err := d.deps.Notifier.NotifyDispatch(ctx, snap.Period, results); err != nil {
			slog.Warn("dispatch: notifier error", "err", err)
		}
	}
	return OutcomeDispatched, results, nil
}

// dispatch envía una orden por oportunidad, en secuencia.
func (d *Dispatcher) dispatch(ctx context.Context, snap domain.MarketSnapshot) []domain.DispatchResult {
	opps := BuildOpportunities(snap, d.cfg.LimitPrice)
	slog.Info("dispatch: window open",
		"period", snap.Period,
		"elapsed", snap.Elapsed,
		"opportunities", len(opps),
	)

	results := make([]domain.DispatchResult, 0, len(opps))
	for _, opp := range opps {
		r := domain.DispatchResult{Opportunity: opp}

		if d.deps.Ledger.HasActivePosition(opp.Period, opp.TokenType) {
			r.Skipped = true
			results = append(results, r)
			continue
		}

		pos, err := d.deps.Executor.Execute(ctx, opp)
		if err != nil {
			slog.Error("dispatch: order failed",
				"token_type", opp.TokenType.String(),
				"token", opp.TokenID,
				"err", err,
			)
			r.Err = err
			d.countOrder("error")
		} else {
			slog.Info("dispatch: order placed",
				"token_type", opp.TokenType.String(),
				"price", pos.Price,
				"size", pos.Size,
				"order_id", pos.OrderID,
			)
			r.Position = &pos
			d.countOrder("ok")
		}
		results = append(results, r)
	}
	return results
}

func (d *Dispatcher) countOrder(result string) {
	if d.deps.Metrics != nil {
		d.deps.Metrics.Order(d.cfg.Mode, result)
	}
}
