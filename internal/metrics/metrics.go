// Package metrics collects Prometheus counters for one backtest run.
//
// A run has no scrape endpoint, so the registry is written out as a
// node_exporter textfile next to the other results.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
)

const (
	namespace = "pump_backtest"
	// FileName is the textfile inside a results folder.
	FileName = "metrics.prom"
)

// RunMetrics holds the registry and the standard metrics of a run.
type RunMetrics struct {
	registry *prometheus.Registry

	Steps             prometheus.Counter
	Signals           *prometheus.CounterVec
	Entries           prometheus.Counter
	Rejections        *prometheus.CounterVec
	Skips             *prometheus.CounterVec
	GeneratorFailures prometheus.Counter
	Trades            *prometheus.CounterVec
	Fees              prometheus.Counter

	Equity        prometheus.Gauge
	MarkedEquity  prometheus.Gauge
	OpenPositions prometheus.Gauge
	Heat          prometheus.Gauge

	RMultiple    prometheus.Histogram
	HoldDuration prometheus.Histogram
}

// NewRunMetrics registers every run metric on a fresh registry. The run id is a constant label.
func NewRunMetrics(runID string) *RunMetrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"run_id": runID}

	m := &RunMetrics{registry: reg}

	m.Steps = m.newCounter(prometheus.CounterOpts{
		Name:        "steps_total",
		Help:        "Simulation steps executed",
		ConstLabels: labels,
	})
	m.Signals = m.newCounterVec(prometheus.CounterOpts{
		Name:        "signals_total",
		Help:        "Signals returned by the generator",
		ConstLabels: labels,
	}, []string{"generator"})
	m.Entries = m.newCounter(prometheus.CounterOpts{
		Name:        "entries_total",
		Help:        "Signals admitted by the portfolio ledger",
		ConstLabels: labels,
	})
	m.Rejections = m.newCounterVec(prometheus.CounterOpts{
		Name:        "rejections_total",
		Help:        "Signals refused by the portfolio ledger",
		ConstLabels: labels,
	}, []string{"reason"})
	m.Skips = m.newCounterVec(prometheus.CounterOpts{
		Name:        "skips_total",
		Help:        "Symbol steps left out of the snapshot map",
		ConstLabels: labels,
	}, []string{"reason"})
	m.GeneratorFailures = m.newCounter(prometheus.CounterOpts{
		Name:        "generator_failures_total",
		Help:        "Steps where the generator returned an error or panicked",
		ConstLabels: labels,
	})
	m.Trades = m.newCounterVec(prometheus.CounterOpts{
		Name:        "trades_total",
		Help:        "Closed trades",
		ConstLabels: labels,
	}, []string{"exit_reason"})
	m.Fees = m.newCounter(prometheus.CounterOpts{
		Name:        "fees_total",
		Help:        "Fees paid in quote currency",
		ConstLabels: labels,
	})

	m.Equity = m.newGauge(prometheus.GaugeOpts{
		Name:        "equity",
		Help:        "Realized equity at the last step",
		ConstLabels: labels,
	})
	m.MarkedEquity = m.newGauge(prometheus.GaugeOpts{
		Name:        "marked_equity",
		Help:        "Equity including unrealized PnL at the last step",
		ConstLabels: labels,
	})
	m.OpenPositions = m.newGauge(prometheus.GaugeOpts{
		Name:        "open_positions",
		Help:        "Open positions at the last step",
		ConstLabels: labels,
	})
	m.Heat = m.newGauge(prometheus.GaugeOpts{
		Name:        "portfolio_heat",
		Help:        "Open risk over equity at the last step",
		ConstLabels: labels,
	})

	m.RMultiple = m.newHistogram(prometheus.HistogramOpts{
		Name:        "trade_r_multiple",
		Help:        "Net PnL over initial risk per closed trade",
		Buckets:     []float64{-2, -1, -0.5, 0, 0.5, 1, 1.5, 2, 3, 5},
		ConstLabels: labels,
	})
	m.HoldDuration = m.newHistogram(prometheus.HistogramOpts{
		Name:        "trade_hold_seconds",
		Help:        "Holding time per closed trade",
		Buckets:     prometheus.ExponentialBuckets(60, 2, 10),
		ConstLabels: labels,
	})

	return m
}

func (m *RunMetrics) newCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = namespace
	c := prometheus.NewCounter(opts)
	m.registry.MustRegister(c)

	return c
}

func (m *RunMetrics) newCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)

	return cv
}

func (m *RunMetrics) newGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = namespace
	g := prometheus.NewGauge(opts)
	m.registry.MustRegister(g)

	return g
}

func (m *RunMetrics) newHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = namespace
	h := prometheus.NewHistogram(opts)
	m.registry.MustRegister(h)

	return h
}

// ObserveTrade counts a closed trade and its fees.
func (m *RunMetrics) ObserveTrade(trade types.ClosedTrade) {
	m.Trades.WithLabelValues(string(trade.ExitReason)).Inc()
	m.RMultiple.Observe(trade.RMultiple)
	m.HoldDuration.Observe(trade.HoldDuration.Seconds())

	if trade.FeesPaid > 0 {
		m.Fees.Add(trade.FeesPaid)
	}
}

// ObserveEquity sets the step gauges.
func (m *RunMetrics) ObserveEquity(point types.EquityPoint, heat float64) {
	m.Equity.Set(point.Equity)
	m.MarkedEquity.Set(point.MarkedEquity)
	m.OpenPositions.Set(float64(point.OpenPositions))
	m.Heat.Set(heat)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the registry in the Prometheus text format.
func (m *RunMetrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write metrics textfile", err)
	}

	return nil
}
