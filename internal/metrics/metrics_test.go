package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSpin("legacy", 100, 600, 0.001)
	m.ObserveSpin("legacy", 100, 0, 0.001)
	m.ObserveSpin("mega", 25, 40, 0.002)
	m.SetJackpot(10020)
	m.JackpotAwarded()
	m.ConfigError()
	m.ObservePaths(64)

	if got := testutil.ToFloat64(m.spins.WithLabelValues("legacy")); got != 2 {
		t.Errorf("Expected 2 legacy spins, got %v", got)
	}
	if got := testutil.ToFloat64(m.wagered.WithLabelValues("legacy")); got != 200 {
		t.Errorf("Expected 200 wagered, got %v", got)
	}
	if got := testutil.ToFloat64(m.won.WithLabelValues("mega")); got != 40 {
		t.Errorf("Expected 40 won on mega, got %v", got)
	}
	if got := testutil.ToFloat64(m.jackpotPool); got != 10020 {
		t.Errorf("Expected pool gauge 10020, got %v", got)
	}
	if got := testutil.ToFloat64(m.jackpotAwards); got != 1 {
		t.Errorf("Expected 1 award, got %v", got)
	}
	if n := testutil.CollectAndCount(m.megawayPaths); n != 1 {
		t.Errorf("Expected one paths histogram, got %d", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSpin("legacy", 1, 1, 0)
	m.ObservePaths(1)
	m.SetJackpot(1)
	m.JackpotAwarded()
	m.ConfigError()
}
