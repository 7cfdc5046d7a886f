// Package metrics exposes Prometheus collectors for spins and the jackpot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const labelMachine = "machine"

// Metrics groups the server's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	spins         *prometheus.CounterVec
	wagered       *prometheus.CounterVec
	won           *prometheus.CounterVec
	spinDuration  *prometheus.HistogramVec
	megawayPaths  prometheus.Histogram
	jackpotPool   prometheus.Gauge
	jackpotAwards prometheus.Counter
	configErrors  prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		spins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slotsrv_spins_total", Help: "Spins played",
		}, []string{labelMachine}),
		wagered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slotsrv_wagered_total", Help: "Total amount wagered",
		}, []string{labelMachine}),
		won: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slotsrv_won_total", Help: "Total amount paid out",
		}, []string{labelMachine}),
		spinDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slotsrv_spin_duration_seconds",
			Help:    "Time to generate and evaluate a spin",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{labelMachine}),
		megawayPaths: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "slotsrv_megaway_paths_scanned",
			Help:    "Paths visited per megaway evaluation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
		jackpotPool: f.NewGauge(prometheus.GaugeOpts{
			Name: "slotsrv_jackpot_pool", Help: "Current progressive jackpot amount",
		}),
		jackpotAwards: f.NewCounter(prometheus.CounterOpts{
			Name: "slotsrv_jackpot_awards_total", Help: "Jackpots awarded",
		}),
		configErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "slotsrv_config_errors_total", Help: "Machine definitions rejected at build time",
		}),
	}
}

// ObserveSpin records one settled spin.
func (m *Metrics) ObserveSpin(machine string, wager, win int64, seconds float64) {
	if m == nil {
		return
	}
	m.spins.WithLabelValues(machine).Inc()
	m.wagered.WithLabelValues(machine).Add(float64(wager))
	m.won.WithLabelValues(machine).Add(float64(win))
	m.spinDuration.WithLabelValues(machine).Observe(seconds)
}

// ObservePaths records how many megaway paths one evaluation visited.
func (m *Metrics) ObservePaths(n int) {
	if m == nil {
		return
	}
	m.megawayPaths.Observe(float64(n))
}

// SetJackpot updates the pool gauge.
func (m *Metrics) SetJackpot(amount int64) {
	if m == nil {
		return
	}
	m.jackpotPool.Set(float64(amount))
}

// JackpotAwarded counts a jackpot payout.
func (m *Metrics) JackpotAwarded() {
	if m == nil {
		return
	}
	m.jackpotAwards.Inc()
}

// ConfigError counts a rejected machine definition.
func (m *Metrics) ConfigError() {
	if m == nil {
		return
	}
	m.configErrors.Inc()
}
