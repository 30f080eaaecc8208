package metrics

import (
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/evolve"
)

// Recorder collects run metrics on its own registry so a process can hold
// several runs and write each to a node-exporter textfile.
type Recorder struct {
	reg *prometheus.Registry

	generation  prometheus.Gauge
	bestFitness prometheus.Gauge
	avgFitness  prometheus.Gauge
	invalid     prometheus.Gauge
	evaluations prometheus.Counter
	genDuration prometheus.Histogram

	trades    *prometheus.CounterVec
	equity    prometheus.Gauge
	returnPct prometheus.Gauge
	drawdown  prometheus.Gauge
}

// New creates a recorder; every series carries the run label.
func New(runID string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run": runID}, reg))

	return &Recorder{
		reg: reg,
		generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_generation",
			Help: "Last completed generation",
		}),
		bestFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_best_fitness",
			Help: "Hall of fame fitness after the last generation",
		}),
		avgFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_avg_fitness",
			Help: "Mean finite fitness of the last generation",
		}),
		invalid: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_invalid_individuals",
			Help: "Individuals with a non-finite fitness in the last generation",
		}),
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "gptrader_evaluations_total",
			Help: "Fitness evaluations performed",
		}),
		genDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gptrader_generation_duration_seconds",
			Help:    "Wall time of one generation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gptrader_best_rule_trades_total",
			Help: "Closed trades of the best rule's replay by exit reason",
		}, []string{"reason"}),
		equity: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_best_rule_final_equity",
			Help: "Final equity of the best rule's replay",
		}),
		returnPct: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_best_rule_return_pct",
			Help: "Return of the best rule's replay in percent",
		}),
		drawdown: f.NewGauge(prometheus.GaugeOpts{
			Name: "gptrader_best_rule_max_drawdown_ratio",
			Help: "Maximum drawdown of the best rule's replay as a fraction of peak",
		}),
	}
}

// finite keeps -Inf sentinels out of gauges.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ObserveGeneration matches evolve's OnGeneration callback.
func (r *Recorder) ObserveGeneration(s evolve.GenStats) {
	r.generation.Set(float64(s.Gen))
	r.bestFitness.Set(finite(s.Best))
	r.avgFitness.Set(finite(s.Avg))
	r.invalid.Set(float64(s.Invalid))
	r.evaluations.Add(float64(s.Evals))
	r.genDuration.Observe(s.Elapsed.Seconds())
}

// ObserveReport records the replay of the winning rule.
func (r *Recorder) ObserveReport(rep backtest.Report) {
	for _, t := range rep.Trades {
		r.trades.WithLabelValues(string(t.Reason)).Inc()
	}
	r.equity.Set(rep.Result.FinalEquity)
	r.returnPct.Set(finite(rep.Result.ReturnPct))
	r.drawdown.Set(rep.Result.MaxDrawdown)
}

func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the registry in text exposition format, atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
