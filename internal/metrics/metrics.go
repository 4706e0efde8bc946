// Package metrics exposes Prometheus collectors for the bot's round loop.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freeeve/cellwar/pkg/conquest"
)

// Collector bundles the bot's Prometheus metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	RoundDuration    prometheus.Histogram
	Orders           *prometheus.CounterVec
	AmbiguousImpacts prometheus.Counter
	RouteFallbacks   prometheus.Counter
	ThreatChanges    *prometheus.CounterVec
	OwnedCells       prometheus.Gauge
	Dropped          *prometheus.CounterVec
}

// New registers the bot metrics against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error
	if c.RoundDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cellwar_round_duration_seconds",
		Help:    "Time from reading a round to flushing its orders.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25},
	}), "cellwar_round_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Orders, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cellwar_orders_total",
		Help: "Orders emitted, labeled by kind.",
	}, []string{"kind"}), "cellwar_orders_total"); err != nil {
		return nil, err
	}
	if c.AmbiguousImpacts, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cellwar_ambiguous_impacts_total",
		Help: "Bomb impacts that could not be attributed to a single bomb yet.",
	}), "cellwar_ambiguous_impacts_total"); err != nil {
		return nil, err
	}
	if c.RouteFallbacks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cellwar_route_fallbacks_total",
		Help: "Moves sent directly because no route under the cutoff existed.",
	}), "cellwar_route_fallbacks_total"); err != nil {
		return nil, err
	}
	if c.ThreatChanges, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cellwar_threat_changes_total",
		Help: "Friendly cell threat transitions, labeled by the new status.",
	}, []string{"status"}), "cellwar_threat_changes_total"); err != nil {
		return nil, err
	}
	if c.OwnedCells, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cellwar_owned_cells",
		Help: "Cells held at the end of the last round.",
	}), "cellwar_owned_cells"); err != nil {
		return nil, err
	}
	if c.Dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cellwar_dropped_records_total",
		Help: "Round records dropped because a side channel was full, labeled by channel.",
	}, []string{"channel"}), "cellwar_dropped_records_total"); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveRound records one round's duration, orders and engine report.
func (c *Collector) ObserveRound(d time.Duration, orders []conquest.Order, rep conquest.RoundReport, owned int) {
	if c == nil {
		return
	}
	c.RoundDuration.Observe(d.Seconds())
	for _, o := range orders {
		c.Orders.WithLabelValues(o.Kind.String()).Inc()
	}
	c.AmbiguousImpacts.Add(float64(len(rep.Ambiguous)))
	for _, tc := range rep.ThreatChanges {
		c.ThreatChanges.WithLabelValues(tc.To.String()).Inc()
	}
	c.OwnedCells.Set(float64(owned))
}

// RouteFallback counts one direct move made without a route.
func (c *Collector) RouteFallback() {
	if c == nil {
		return
	}
	c.RouteFallbacks.Inc()
}

// Drop counts a record dropped by the named side channel.
func (c *Collector) Drop(channel string) {
	if c == nil {
		return
	}
	c.Dropped.WithLabelValues(channel).Inc()
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
