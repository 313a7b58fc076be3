// Package metrics expone contadores del bot en formato Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Prometheus implementa ports.Metrics sobre un registry propio.
type Prometheus struct {
	reg           *prometheus.Registry
	ticks         *prometheus.CounterVec
	orders        *prometheus.CounterVec
	quoteFailures *prometheus.CounterVec
	period        prometheus.Gauge
}

// New crea y registra los collectors.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		reg: reg,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "updown_ticks_total",
			Help: "Ticks del dispatcher por resultado.",
		}, []string{"outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "updown_orders_total",
			Help: "Órdenes despachadas por modo y resultado.",
		}, []string{"mode", "result"}),
		quoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "updown_quote_failures_total",
			Help: "Cotizaciones fallidas por asset.",
		}, []string{"asset"}),
		period: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "updown_current_period",
			Help: "Inicio (unix) del periodo en curso.",
		}),
	}
	reg.MustRegister(
		p.ticks, p.orders, p.quoteFailures, p.period,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Tick(outcome string) {
	p.ticks.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) Order(mode, result string) {
	p.orders.WithLabelValues(mode, result).Inc()
}

func (p *Prometheus) QuoteFailure(asset domain.Asset) {
	p.quoteFailures.WithLabelValues(string(asset)).Inc()
}

func (p *Prometheus) Period(period int64) {
	p.period.Set(float64(period))
}

// Registry devuelve el registry con los collectors del bot.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.reg
}

// Handler devuelve el handler HTTP de /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

// Serve expone /metrics en addr hasta que ctx se cancela.
func (p *Prometheus) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics.Serve: %w", err)
	}
	return nil
}

// Nop descarta todas las métricas. Se usa cuando metrics.listen está vacío.
type Nop struct{}

func (Nop) Tick(string)               {}
func (Nop) Order(string, string)      {}
func (Nop) QuoteFailure(domain.Asset) {}
func (Nop) Period(int64)              {}
